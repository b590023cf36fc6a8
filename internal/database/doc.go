// Package database owns the local SQLite file behind the admin dashboard.
//
//	database/
//	├── database.go  # Connection setup and migrations
//	├── admins/      # Administrator account listing and removal
//	└── settings/    # Settings groups stored as JSON documents
//
// Books, users and the audit trail are not stored here; they live in the
// realtime store (see internal/realtime and internal/repository).
//
//	db, err := database.NewDatabase("./sboapp-admin.db")
//	settingsRepo := settings.NewRepository(db.DB)
package database
