// Package xtream provides a Go client for the EPG-relevant subset of the
// Xtream Codes API.
//
// Xtream Codes is an IPTV panel system that exposes a REST API. This client
// covers authentication, live stream listings, and EPG (Electronic Program
// Guide) retrieval; VOD and series endpoints are out of scope.
//
// # Basic Usage
//
//	client := xtream.NewClient("http://example.com:8080", "username", "password")
//
//	// Verify credentials and get server info
//	info, err := client.GetAuthInfo(ctx)
//
//	// List all live streams
//	streams, err := client.GetLiveStreams(ctx, nil)
//
//	// List streams in a specific category
//	streams, err := client.GetLiveStreams(ctx, &xtream.StreamsOptions{CategoryID: "1"})
//
//	// Get short EPG for a stream
//	epg, err := client.GetShortEPG(ctx, 12345, 10)
//
//	// Stream the full XMLTV guide
//	rc, err := client.GetXMLTVReader(ctx)
//
// # Defensive Decoding
//
// Portal responses are wildly inconsistent: numeric fields arrive as strings,
// list endpoints sometimes return {} or {"error": "..."}, and EPG text is
// often base64-encoded. The Flex* types and list-tolerant decoding absorb
// these shapes instead of failing; an object where a list belongs decodes as
// "no data".
//
// # API Reference
//
// This client is based on the Xtream Codes API documentation and implementations:
//   - https://github.com/tellytv/go.xtream-codes
//   - https://github.com/sherif-fanous/xtreamcodes
//
// # API Endpoints
//
// The Xtream Codes API uses the following endpoint pattern:
//
//	{baseURL}/player_api.php?username={user}&password={pass}&action={action}
//
// Actions used by this client:
//   - (no action): Get server info and authentication status
//   - get_live_streams: List live streams (optional: category_id)
//   - get_short_epg: Get short EPG (required: stream_id, optional: limit)
//   - get_simple_data_table: Get full EPG (required: stream_id)
//
// Additional endpoints:
//   - {baseURL}/xmltv.php?username={user}&password={pass}: Full XMLTV EPG
package xtream
