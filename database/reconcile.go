package database

import (
	"fmt"
	"log"
	"strings"

	"survey-backend/auth"
	"survey-backend/models"

	"gorm.io/gorm"
)

// Stable index names the reconciliation depends on to detect old-vs-new shape.
const (
	userUsernameIndex = "uq_users_username"
	userEmailIndex    = "uq_users_email"
	legacyVoteIndex   = "unique_user_poll_vote"    // one vote per (poll, user)
	currentVoteIndex  = "unique_user_poll_variant" // one vote per (poll, user, variant)
	legacyOwnerRole   = "owner"
)

// Reconcile upgrades a legacy store to the current shape. Safe and silent to
// re-run; meant to execute once at startup before requests are served.
func Reconcile(db *gorm.DB) error {
	if err := EnsureUserColumns(db); err != nil {
		return err
	}
	return EnsureVoteConstraints(db)
}

// EnsureUserColumns brings a pre-existing users table up to the current
// model: missing auth columns, username backfill and dedup, password
// backfill, legacy role normalization and the unique indexes. Each logical
// step commits on its own; a step with nothing to do writes and logs nothing.
func EnsureUserColumns(db *gorm.DB) error {
	m := db.Migrator()
	if !m.HasTable(&models.User{}) {
		// fresh database, AutoMigrate creates the full shape
		return nil
	}

	if err := addMissingUserColumns(db); err != nil {
		return fmt.Errorf("add user columns: %w", err)
	}
	if err := backfillUsernames(db); err != nil {
		return fmt.Errorf("backfill usernames: %w", err)
	}
	if err := dedupeUsernames(db); err != nil {
		return fmt.Errorf("dedupe usernames: %w", err)
	}
	if err := backfillPasswords(db); err != nil {
		return fmt.Errorf("backfill passwords: %w", err)
	}
	if err := normalizeLegacyRoles(db); err != nil {
		return fmt.Errorf("normalize roles: %w", err)
	}
	if err := ensureUserIndexes(db); err != nil {
		return fmt.Errorf("ensure user indexes: %w", err)
	}
	return nil
}

func addMissingUserColumns(db *gorm.DB) error {
	m := db.Migrator()

	type column struct {
		name string
		ddl  string
	}
	createdAtDDL := "ALTER TABLE users ADD COLUMN created_at DATETIME"
	if db.Dialector.Name() == "mysql" {
		createdAtDDL += " DEFAULT CURRENT_TIMESTAMP"
	}
	// SQLite rejects non-constant defaults in ADD COLUMN, so the timestamp
	// column stays default-free there and relies on the model hook.
	columns := []column{
		{"username", "ALTER TABLE users ADD COLUMN username VARCHAR(191)"},
		{"password_hash", "ALTER TABLE users ADD COLUMN password_hash VARCHAR(255)"},
		{"created_at", createdAtDDL},
		{"avatar_url", "ALTER TABLE users ADD COLUMN avatar_url VARCHAR(255)"},
	}

	for _, col := range columns {
		if m.HasColumn(&models.User{}, col.name) {
			continue
		}
		if err := db.Exec(col.ddl).Error; err != nil {
			return err
		}
		log.Printf("Added missing column users.%s", col.name)
	}
	return nil
}

// usernameTaken checks whether a candidate collides with another row
func usernameTaken(tx *gorm.DB, candidate, excludeID string) (bool, error) {
	var n int64
	err := tx.Raw(
		"SELECT COUNT(1) FROM users WHERE username = ? AND id <> ?",
		candidate, excludeID,
	).Scan(&n).Error
	return n > 0, err
}

// uniqueUsername appends an increasing numeric suffix to base until the
// candidate is free for the given row.
func uniqueUsername(tx *gorm.DB, base, excludeID string, startSuffix int) (string, error) {
	candidate := base
	if startSuffix > 0 {
		candidate = fmt.Sprintf("%s%d", base, startSuffix)
	}
	suffix := startSuffix
	for {
		taken, err := usernameTaken(tx, candidate, excludeID)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		suffix++
		candidate = fmt.Sprintf("%s%d", base, suffix)
	}
}

func backfillUsernames(db *gorm.DB) error {
	var rows []struct {
		ID    string
		Email string
	}
	err := db.Raw("SELECT id, email FROM users WHERE username IS NULL OR username = ''").Scan(&rows).Error
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		for _, row := range rows {
			base := ""
			if row.Email != "" {
				base = strings.SplitN(row.Email, "@", 2)[0]
			}
			if base == "" {
				base = "user_" + shortID(row.ID)
			}
			base = strings.ToLower(base)

			candidate, err := uniqueUsername(tx, base, row.ID, 0)
			if err != nil {
				return err
			}
			if err := tx.Exec("UPDATE users SET username = ? WHERE id = ?", candidate, row.ID).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Printf("Backfilled usernames for %d existing users", len(rows))
	return nil
}

func dedupeUsernames(db *gorm.DB) error {
	var duplicates []string
	err := db.Raw(`SELECT username FROM users
		WHERE username IS NOT NULL AND username <> ''
		GROUP BY username HAVING COUNT(*) > 1`).Scan(&duplicates).Error
	if err != nil {
		return err
	}
	if len(duplicates) == 0 {
		return nil
	}

	resolved := 0
	err = db.Transaction(func(tx *gorm.DB) error {
		for _, dup := range duplicates {
			var ids []string
			if err := tx.Raw("SELECT id FROM users WHERE username = ? ORDER BY id", dup).Scan(&ids).Error; err != nil {
				return err
			}
			// keep the first row, re-suffix the rest
			for idx, id := range ids[1:] {
				candidate, err := uniqueUsername(tx, dup, id, idx+1)
				if err != nil {
					return err
				}
				if err := tx.Exec("UPDATE users SET username = ? WHERE id = ?", candidate, id).Error; err != nil {
					return err
				}
				resolved++
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Printf("Warning: resolved %d duplicate usernames in users table", resolved)
	return nil
}

func backfillPasswords(db *gorm.DB) error {
	var ids []string
	err := db.Raw("SELECT id FROM users WHERE password_hash IS NULL OR password_hash = ''").Scan(&ids).Error
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		for _, id := range ids {
			hashed, err := auth.HashPassword(auth.DefaultPassword)
			if err != nil {
				return err
			}
			if err := tx.Exec("UPDATE users SET password_hash = ? WHERE id = ?", hashed, id).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Printf("Backfilled password hashes for %d existing users; the default credential must be rotated", len(ids))
	return nil
}

func normalizeLegacyRoles(db *gorm.DB) error {
	res := db.Exec("UPDATE users SET role = ? WHERE role = ?", models.RoleAdmin, legacyOwnerRole)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		log.Printf("Normalized %d legacy owner roles to admin", res.RowsAffected)
	}
	return nil
}

func ensureUserIndexes(db *gorm.DB) error {
	m := db.Migrator()
	if !m.HasIndex(&models.User{}, userUsernameIndex) {
		if err := db.Exec("CREATE UNIQUE INDEX " + userUsernameIndex + " ON users (username)").Error; err != nil {
			return err
		}
		log.Printf("Created unique index %s", userUsernameIndex)
	}
	if !m.HasIndex(&models.User{}, userEmailIndex) {
		if err := db.Exec("CREATE UNIQUE INDEX " + userEmailIndex + " ON users (email)").Error; err != nil {
			return err
		}
		log.Printf("Created unique index %s", userEmailIndex)
	}
	return nil
}

// EnsureVoteConstraints swaps the legacy one-vote-per-poll uniqueness for the
// per-variant constraint the current model requires. Idempotent.
func EnsureVoteConstraints(db *gorm.DB) error {
	m := db.Migrator()
	if !m.HasTable(&models.Vote{}) {
		return nil
	}

	if m.HasIndex(&models.Vote{}, legacyVoteIndex) {
		if err := m.DropIndex(&models.Vote{}, legacyVoteIndex); err != nil {
			return fmt.Errorf("drop legacy vote index: %w", err)
		}
		log.Printf("Dropped legacy vote index %s", legacyVoteIndex)
	}

	if !m.HasIndex(&models.Vote{}, currentVoteIndex) {
		err := db.Exec("CREATE UNIQUE INDEX " + currentVoteIndex + " ON votes (poll_id, user_id, variant_id)").Error
		if err != nil {
			return fmt.Errorf("create vote index: %w", err)
		}
		log.Printf("Created unique index %s", currentVoteIndex)
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
