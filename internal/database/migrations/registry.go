// Package migrations provides database migration management for guidarr.
package migrations

import (
	"github.com/guidarr/guidarr/internal/kvstore"
	"github.com/guidarr/guidarr/internal/models"
	"gorm.io/gorm"
)

// AllMigrations returns all registered migrations in order.
// - 001: Schema creation using GORM AutoMigrate
// - 002: Add user_agent column to epg_sources for per-source user-agent overrides
// - 003: Remove cached EPG data for sources that no longer exist
// - 004: Add cron_schedule column to epg_sources for cron-pinned refreshes
func AllMigrations() []Migration {
	return []Migration{
		migration001Schema(),
		migration002SourceUserAgent(),
		migration003OrphanedCacheCleanup(),
		migration004SourceCronSchedule(),
	}
}

// migration001Schema creates all database tables using GORM AutoMigrate.
func migration001Schema() Migration {
	return Migration{
		Version:     "001",
		Description: "Create all database tables",
		Up: func(tx *gorm.DB) error {
			// AutoMigrate all models in dependency order
			return tx.AutoMigrate(
				// Source configuration
				&models.EpgSource{},

				// Cached EPG snapshots and metadata
				&kvstore.Entry{},
			)
		},
		Down: func(tx *gorm.DB) error {
			// Drop tables in reverse dependency order
			tables := []string{
				"kv_entries",
				"epg_sources",
			}
			for _, table := range tables {
				if tx.Migrator().HasTable(table) {
					if err := tx.Migrator().DropTable(table); err != nil {
						return err
					}
				}
			}
			return nil
		},
	}
}

// migration002SourceUserAgent adds the user_agent column to epg_sources.
// Some providers reject the default client user-agent, so each source can
// override it. Fresh installs already have the column from AutoMigrate.
func migration002SourceUserAgent() Migration {
	return Migration{
		Version:     "002",
		Description: "Add user_agent column to epg_sources",
		Up: func(tx *gorm.DB) error {
			if !tx.Migrator().HasColumn("epg_sources", "user_agent") {
				if err := tx.Exec("ALTER TABLE epg_sources ADD COLUMN user_agent TEXT DEFAULT ''").Error; err != nil {
					return err
				}
			}
			return nil
		},
		Down: func(tx *gorm.DB) error {
			// SQLite doesn't support DROP COLUMN directly in older versions
			// For newer SQLite (3.35+), we can use DROP COLUMN
			if tx.Migrator().HasColumn("epg_sources", "user_agent") {
				if err := tx.Exec("ALTER TABLE epg_sources DROP COLUMN user_agent").Error; err != nil {
					// Fallback: For older SQLite, this is a no-op on rollback
					// The column will just be ignored if it exists
					return nil
				}
			}
			return nil
		},
	}
}

// migration003OrphanedCacheCleanup deletes cached EPG entries whose source
// has been removed. Deleting a source cleans up its cache rows, but earlier
// releases left them behind.
func migration003OrphanedCacheCleanup() Migration {
	return Migration{
		Version:     "003",
		Description: "Remove cached EPG data for deleted sources",
		Up: func(tx *gorm.DB) error {
			if !tx.Migrator().HasTable("kv_entries") || !tx.Migrator().HasTable("epg_sources") {
				return nil
			}
			// Key layout is epg:meta:<id> and epg:programs:<id>; strip the
			// prefix and check the id still exists.
			statements := []string{
				"DELETE FROM kv_entries WHERE key LIKE 'epg:meta:%' AND substr(key, 10) NOT IN (SELECT id FROM epg_sources)",
				"DELETE FROM kv_entries WHERE key LIKE 'epg:programs:%' AND substr(key, 14) NOT IN (SELECT id FROM epg_sources)",
			}
			for _, stmt := range statements {
				if err := tx.Exec(stmt).Error; err != nil {
					return err
				}
			}
			return nil
		},
		Down: func(tx *gorm.DB) error {
			// Deleted rows cannot be restored
			return nil
		},
	}
}

// migration004SourceCronSchedule adds the cron_schedule column to
// epg_sources so a source can pin its refreshes to a cron expression.
// Fresh installs already have the column from AutoMigrate.
func migration004SourceCronSchedule() Migration {
	return Migration{
		Version:     "004",
		Description: "Add cron_schedule column to epg_sources",
		Up: func(tx *gorm.DB) error {
			if !tx.Migrator().HasColumn("epg_sources", "cron_schedule") {
				if err := tx.Exec("ALTER TABLE epg_sources ADD COLUMN cron_schedule TEXT DEFAULT ''").Error; err != nil {
					return err
				}
			}
			return nil
		},
		Down: func(tx *gorm.DB) error {
			if tx.Migrator().HasColumn("epg_sources", "cron_schedule") {
				if err := tx.Exec("ALTER TABLE epg_sources DROP COLUMN cron_schedule").Error; err != nil {
					return nil
				}
			}
			return nil
		},
	}
}
