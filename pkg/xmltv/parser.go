// Package xmltv provides streaming XMLTV parsing and writing.
// It supports the de facto XMLTV format for electronic programme guide data.
package xmltv

import (
	"bufio"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dsnet/compress/bzip2"
	"github.com/ulikunitz/xz"
	"golang.org/x/net/html/charset"

	"compress/gzip"
)

// Channel represents a channel definition in an XMLTV document.
// DisplayNames holds every non-empty display-name in document order.
type Channel struct {
	ID           string
	DisplayNames []string
	Icon         string
}

// Name returns the canonical channel name: the first display name,
// falling back to the channel id when the document carries none.
func (c *Channel) Name() string {
	if len(c.DisplayNames) > 0 {
		return c.DisplayNames[0]
	}
	return c.ID
}

// Programme represents a single programme entry in an XMLTV document.
// Start and Stop are normalized to UTC during parsing.
type Programme struct {
	Channel     string
	Start       time.Time
	Stop        time.Time
	Title       string
	SubTitle    string
	Description string
	Category    string
	Language    string
	Icon        string
	EpisodeNum  string
}

// Stats reports what a parse pass accepted and dropped.
type Stats struct {
	Channels          int
	Programmes        int
	DroppedChannels   int
	DroppedProgrammes int
}

// errInvalidRecord tags records rejected for missing required fields.
// Such records are dropped and counted; parsing continues.
var errInvalidRecord = errors.New("invalid record")

// Parser provides streaming XMLTV parsing with callback-based processing.
// Records that fail the format's minimum requirements (channel without an
// id, programme without channel/start/stop/title, unparsable timestamps)
// never reach the callbacks: they are counted in Stats, reported through
// OnError, and parsing continues. A document that is not well-formed
// markup, or has no tv root at all, yields zero records rather than an
// error.
type Parser struct {
	// OnChannel is called for each accepted channel definition.
	OnChannel func(channel *Channel) error

	// OnProgramme is called for each accepted programme.
	OnProgramme func(programme *Programme) error

	// OnError is called for recoverable parsing problems, including
	// dropped records.
	OnError func(err error)

	stats Stats
}

// Stats returns the accept/drop counters of the most recent Parse call.
func (p *Parser) Stats() Stats {
	return p.stats
}

// ParseTime parses the XMLTV timestamp grammar: a YYYYMMDDHHmmss prefix
// (a YYYYMMDDHHmm short form is also seen in the wild), optionally
// followed by a space and a [+-]HHMM offset. A colon between offset
// hours and minutes is accepted. The result is normalized to UTC; an
// absent offset means the wall time already is UTC.
func ParseTime(value string) (time.Time, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return time.Time{}, fmt.Errorf("empty time value")
	}

	prefix := v
	var offset string
	if i := strings.IndexByte(v, ' '); i >= 0 {
		prefix = v[:i]
		offset = strings.Replace(strings.TrimSpace(v[i+1:]), ":", "", 1)
	}

	var layout string
	switch len(prefix) {
	case 14:
		layout = "20060102150405"
	case 12:
		layout = "200601021504"
	default:
		return time.Time{}, fmt.Errorf("unrecognized time value %q", value)
	}

	if offset == "" {
		t, err := time.Parse(layout, prefix)
		if err != nil {
			return time.Time{}, fmt.Errorf("parsing time %q: %w", value, err)
		}
		return t, nil
	}

	t, err := time.Parse(layout+" -0700", prefix+" "+offset)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing time %q: %w", value, err)
	}
	return t.UTC(), nil
}

// Parse parses an XMLTV document from a reader. The returned error is
// non-nil only when a callback fails; document-level problems degrade to
// a partial (possibly empty) result.
func (p *Parser) Parse(r io.Reader) error {
	p.stats = Stats{}

	decoder := xml.NewDecoder(r)
	decoder.Strict = false
	decoder.AutoClose = xml.HTMLAutoClose
	decoder.Entity = xml.HTMLEntity
	decoder.CharsetReader = charset.NewReaderLabel

	// Records only count once the tv root has been located; stray
	// channel/programme elements outside it are ignored.
	inTV := false
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			p.handleError(fmt.Errorf("reading XML token: %w", err))
			break
		}

		elem, ok := token.(xml.StartElement)
		if !ok {
			continue
		}

		if !inTV {
			if elem.Name.Local == "tv" {
				inTV = true
			}
			continue
		}

		switch elem.Name.Local {
		case "channel":
			if p.OnChannel == nil {
				_ = decoder.Skip()
				continue
			}
			channel, err := p.parseChannel(decoder, elem)
			if err != nil {
				if errors.Is(err, errInvalidRecord) {
					p.stats.DroppedChannels++
				}
				p.handleError(err)
				continue
			}
			p.stats.Channels++
			if err := p.OnChannel(channel); err != nil {
				return fmt.Errorf("channel callback: %w", err)
			}

		case "programme":
			if p.OnProgramme == nil {
				_ = decoder.Skip()
				continue
			}
			programme, err := p.parseProgramme(decoder, elem)
			if err != nil {
				if errors.Is(err, errInvalidRecord) {
					p.stats.DroppedProgrammes++
				}
				p.handleError(err)
				continue
			}
			p.stats.Programmes++
			if err := p.OnProgramme(programme); err != nil {
				return fmt.Errorf("programme callback: %w", err)
			}
		}
	}

	return nil
}

// ParseCompressed parses a potentially compressed XMLTV document.
// Gzip, bzip2 and xz are detected from their magic bytes.
func (p *Parser) ParseCompressed(r io.Reader) error {
	br := bufio.NewReader(r)

	header, err := br.Peek(6)
	if err != nil && err != io.EOF {
		return fmt.Errorf("peeking header: %w", err)
	}

	var reader io.Reader = br

	switch {
	case len(header) >= 2 && header[0] == 0x1f && header[1] == 0x8b:
		gzr, err := gzip.NewReader(br)
		if err != nil {
			return fmt.Errorf("creating gzip reader: %w", err)
		}
		defer gzr.Close()
		reader = gzr

	case len(header) >= 3 && header[0] == 'B' && header[1] == 'Z' && header[2] == 'h':
		bzr, err := bzip2.NewReader(br, nil)
		if err != nil {
			return fmt.Errorf("creating bzip2 reader: %w", err)
		}
		defer bzr.Close()
		reader = bzr

	case len(header) >= 6 && header[0] == 0xfd && header[1] == '7' && header[2] == 'z' && header[3] == 'X' && header[4] == 'Z' && header[5] == 0x00:
		xzr, err := xz.NewReader(br)
		if err != nil {
			return fmt.Errorf("creating xz reader: %w", err)
		}
		reader = xzr
	}

	return p.Parse(reader)
}

// parseChannel parses a channel element. Channels without an id are
// rejected with errInvalidRecord.
func (p *Parser) parseChannel(decoder *xml.Decoder, start xml.StartElement) (*Channel, error) {
	channel := &Channel{}

	for _, attr := range start.Attr {
		if attr.Name.Local == "id" {
			channel.ID = strings.TrimSpace(attr.Value)
		}
	}

	for {
		token, err := decoder.Token()
		if err != nil {
			return nil, err
		}

		switch elem := token.(type) {
		case xml.StartElement:
			switch elem.Name.Local {
			case "display-name":
				var name string
				if err := decoder.DecodeElement(&name, &elem); err == nil {
					if name = strings.TrimSpace(name); name != "" {
						channel.DisplayNames = append(channel.DisplayNames, name)
					}
				}
			case "icon":
				for _, attr := range elem.Attr {
					if attr.Name.Local == "src" {
						channel.Icon = attr.Value
					}
				}
				_ = decoder.Skip()
			default:
				_ = decoder.Skip()
			}
		case xml.EndElement:
			if elem.Name.Local == "channel" {
				if channel.ID == "" {
					return nil, fmt.Errorf("channel without id: %w", errInvalidRecord)
				}
				return channel, nil
			}
		}
	}
}

// parseProgramme parses a programme element. The element is always
// consumed fully; records missing channel, start, stop or a title are
// rejected with errInvalidRecord afterwards.
func (p *Parser) parseProgramme(decoder *xml.Decoder, start xml.StartElement) (*Programme, error) {
	prog := &Programme{}

	var startRaw, stopRaw string
	for _, attr := range start.Attr {
		switch attr.Name.Local {
		case "channel":
			prog.Channel = strings.TrimSpace(attr.Value)
		case "start":
			startRaw = attr.Value
		case "stop":
			stopRaw = attr.Value
		}
	}

	var titleSeen bool
	var episodeOnscreen, episodeFirst string

	for {
		token, err := decoder.Token()
		if err != nil {
			return nil, err
		}

		switch elem := token.(type) {
		case xml.StartElement:
			switch elem.Name.Local {
			case "title":
				if titleSeen {
					_ = decoder.Skip()
					continue
				}
				titleSeen = true
				for _, attr := range elem.Attr {
					if attr.Name.Local == "lang" {
						prog.Language = attr.Value
					}
				}
				var title string
				if err := decoder.DecodeElement(&title, &elem); err == nil {
					prog.Title = strings.TrimSpace(title)
				}
			case "sub-title":
				var subtitle string
				if err := decoder.DecodeElement(&subtitle, &elem); err == nil {
					prog.SubTitle = strings.TrimSpace(subtitle)
				}
			case "desc":
				var desc string
				if err := decoder.DecodeElement(&desc, &elem); err == nil {
					prog.Description = strings.TrimSpace(desc)
				}
			case "category":
				var cat string
				if err := decoder.DecodeElement(&cat, &elem); err == nil && prog.Category == "" {
					prog.Category = strings.TrimSpace(cat)
				}
			case "icon":
				for _, attr := range elem.Attr {
					if attr.Name.Local == "src" {
						prog.Icon = attr.Value
					}
				}
				_ = decoder.Skip()
			case "episode-num":
				var system string
				for _, attr := range elem.Attr {
					if attr.Name.Local == "system" {
						system = attr.Value
					}
				}
				var num string
				if err := decoder.DecodeElement(&num, &elem); err == nil {
					if num = strings.TrimSpace(num); num != "" {
						if system == "onscreen" && episodeOnscreen == "" {
							episodeOnscreen = num
						}
						if episodeFirst == "" {
							episodeFirst = num
						}
					}
				}
			default:
				_ = decoder.Skip()
			}
		case xml.EndElement:
			if elem.Name.Local != "programme" {
				continue
			}

			if episodeOnscreen != "" {
				prog.EpisodeNum = episodeOnscreen
			} else {
				prog.EpisodeNum = episodeFirst
			}

			if prog.Channel == "" {
				return nil, fmt.Errorf("programme without channel: %w", errInvalidRecord)
			}
			if startRaw == "" || stopRaw == "" {
				return nil, fmt.Errorf("programme %q missing start or stop: %w", prog.Channel, errInvalidRecord)
			}
			startTime, err := ParseTime(startRaw)
			if err != nil {
				return nil, fmt.Errorf("programme %q start: %v: %w", prog.Channel, err, errInvalidRecord)
			}
			stopTime, err := ParseTime(stopRaw)
			if err != nil {
				return nil, fmt.Errorf("programme %q stop: %v: %w", prog.Channel, err, errInvalidRecord)
			}
			prog.Start = startTime
			prog.Stop = stopTime

			if prog.Title == "" {
				return nil, fmt.Errorf("programme %q without title: %w", prog.Channel, errInvalidRecord)
			}
			return prog, nil
		}
	}
}

// handleError calls the OnError callback if set.
func (p *Parser) handleError(err error) {
	if p.OnError != nil {
		p.OnError(err)
	}
}

// ParseAll parses an entire XMLTV document and returns the accepted
// channels and programmes along with the parse statistics.
// Note: this loads everything into memory - use Parse with callbacks
// for large documents.
func ParseAll(r io.Reader) ([]*Channel, []*Programme, Stats, error) {
	var channels []*Channel
	var programmes []*Programme
	p := &Parser{
		OnChannel: func(ch *Channel) error {
			channels = append(channels, ch)
			return nil
		},
		OnProgramme: func(prog *Programme) error {
			programmes = append(programmes, prog)
			return nil
		},
	}
	if err := p.Parse(r); err != nil {
		return nil, nil, p.Stats(), err
	}
	return channels, programmes, p.Stats(), nil
}
