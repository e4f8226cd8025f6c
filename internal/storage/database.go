package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ankora/ankora/internal/domain"
	_ "modernc.org/sqlite" // Registers the sqlite driver
)

// DB represents a wrapper around the SQL database connection.
type DB struct {
	conn *sql.DB
}

// Open creates a new database connection and ensures the schema is up to date.
func Open(dsn string) (*DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Execute the schema to create tables if they don't exist.
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &DB{conn: db}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

const cardColumns = `id, user_id, source_id, question, answer, context,
	ease_factor, interval, next_review, review_count, correct_count, incorrect_count, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCard(row rowScanner) (*domain.Card, error) {
	var c domain.Card
	var sourceID sql.NullInt64
	err := row.Scan(
		&c.ID,
		&c.UserID,
		&sourceID,
		&c.Question,
		&c.Answer,
		&c.Context,
		&c.EaseFactor,
		&c.Interval,
		&c.NextReview,
		&c.ReviewCount,
		&c.CorrectCount,
		&c.IncorrectCount,
		&c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if sourceID.Valid {
		c.SourceID = sourceID.Int64
	}
	return &c, nil
}

// InsertCard inserts a new card with its initial scheduling state.
func (db *DB) InsertCard(card domain.Card) error {
	var sourceID sql.NullInt64
	if card.SourceID != 0 {
		sourceID = sql.NullInt64{Int64: card.SourceID, Valid: true}
	}
	_, err := db.conn.Exec(`
		INSERT INTO cards (`+cardColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		card.ID,
		card.UserID,
		sourceID,
		card.Question,
		card.Answer,
		card.Context,
		card.EaseFactor,
		card.Interval,
		card.NextReview,
		card.ReviewCount,
		card.CorrectCount,
		card.IncorrectCount,
		card.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert card %s: %w", card.ID, err)
	}
	return nil
}

// FindCard retrieves a card by id, scoped to its owning user.
// Returns (nil, nil) when no such card exists for that user.
func (db *DB) FindCard(cardID, userID string) (*domain.Card, error) {
	row := db.conn.QueryRow(`
		SELECT `+cardColumns+`
		FROM cards WHERE id = ? AND user_id = ?
	`, cardID, userID)

	card, err := scanCard(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Card not found
		}
		return nil, fmt.Errorf("failed to find card %s: %w", cardID, err)
	}
	return card, nil
}

// ApplyReview persists one scheduling decision: the card's new scheduling
// state and the matching history row, in a single transaction. Counters are
// incremented server-side so concurrent submissions cannot lose counts.
// Returns false when the card vanished between the read and the write.
func (db *DB) ApplyReview(r domain.ReviewResult) (bool, error) {
	correctInc, incorrectInc := 1, 0
	if r.IsLapse {
		correctInc, incorrectInc = 0, 1
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return false, fmt.Errorf("failed to begin review transaction for card %s: %w", r.CardID, err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		UPDATE cards
		SET ease_factor = ?,
		    interval = ?,
		    next_review = ?,
		    review_count = review_count + 1,
		    correct_count = correct_count + ?,
		    incorrect_count = incorrect_count + ?
		WHERE id = ? AND user_id = ?
	`,
		r.NewEase,
		r.NewInterval,
		r.NextReview,
		correctInc,
		incorrectInc,
		r.CardID,
		r.UserID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update scheduling for card %s: %w", r.CardID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected for card %s: %w", r.CardID, err)
	}
	if affected == 0 {
		return false, nil
	}

	if _, err := tx.Exec(`
		INSERT INTO reviews (card_id, user_id, quality, time_taken, old_ease, new_ease,
			old_interval, new_interval, next_review, stage, is_lapse, reviewed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.CardID,
		r.UserID,
		r.Quality,
		r.TimeTaken,
		r.OldEase,
		r.NewEase,
		r.OldInterval,
		r.NewInterval,
		r.NextReview,
		string(r.Stage),
		r.IsLapse,
		r.ReviewedAt,
	); err != nil {
		return false, fmt.Errorf("failed to append review for card %s: %w", r.CardID, err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit review for card %s: %w", r.CardID, err)
	}
	return true, nil
}

// DueCards retrieves all of a user's cards due at or before now,
// ordered oldest due date first.
func (db *DB) DueCards(userID string, now time.Time) ([]domain.Card, error) {
	rows, err := db.conn.Query(`
		SELECT `+cardColumns+`
		FROM cards
		WHERE user_id = ? AND next_review <= ?
		ORDER BY next_review ASC
	`, userID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to get due cards for user %s: %w", userID, err)
	}
	defer rows.Close()

	return collectCards(rows)
}

// CardsForUser retrieves all cards belonging to a user.
func (db *DB) CardsForUser(userID string) ([]domain.Card, error) {
	rows, err := db.conn.Query(`
		SELECT `+cardColumns+`
		FROM cards WHERE user_id = ?
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cards for user %s: %w", userID, err)
	}
	defer rows.Close()

	return collectCards(rows)
}

// CardsBySource retrieves all cards imported from a specific source.
func (db *DB) CardsBySource(sourceID int64) ([]domain.Card, error) {
	rows, err := db.conn.Query(`
		SELECT `+cardColumns+`
		FROM cards WHERE source_id = ?
	`, sourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get cards for source ID %d: %w", sourceID, err)
	}
	defer rows.Close()

	return collectCards(rows)
}

func collectCards(rows *sql.Rows) ([]domain.Card, error) {
	var cards []domain.Card
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan card row: %w", err)
		}
		cards = append(cards, *card)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate card rows: %w", err)
	}
	return cards, nil
}

// DeleteCard removes a card by id.
func (db *DB) DeleteCard(cardID string) error {
	_, err := db.conn.Exec(`
		DELETE FROM cards
		WHERE id = ?
	`, cardID)
	if err != nil {
		return fmt.Errorf("failed to delete card %s: %w", cardID, err)
	}
	return nil
}

// ReviewsSince retrieves a user's review history from `since` onward,
// oldest first.
func (db *DB) ReviewsSince(userID string, since time.Time) ([]domain.ReviewResult, error) {
	rows, err := db.conn.Query(`
		SELECT card_id, user_id, quality, time_taken, old_ease, new_ease,
			old_interval, new_interval, next_review, stage, is_lapse, reviewed_at
		FROM reviews
		WHERE user_id = ? AND reviewed_at >= ?
		ORDER BY reviewed_at ASC
	`, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to get reviews for user %s: %w", userID, err)
	}
	defer rows.Close()

	var results []domain.ReviewResult
	for rows.Next() {
		var r domain.ReviewResult
		var stage string
		if err := rows.Scan(
			&r.CardID,
			&r.UserID,
			&r.Quality,
			&r.TimeTaken,
			&r.OldEase,
			&r.NewEase,
			&r.OldInterval,
			&r.NewInterval,
			&r.NextReview,
			&stage,
			&r.IsLapse,
			&r.ReviewedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan review row: %w", err)
		}
		r.Stage = domain.Stage(stage)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate review rows: %w", err)
	}
	return results, nil
}

// Source represents a card source, either a local path or a Git URL.
type Source struct {
	ID          int64
	Path        string
	Type        string
	LastScanned sql.NullTime
}

// InsertSource inserts a new source path into the database and returns its ID.
func (db *DB) InsertSource(path, sourceType string) (int64, error) {
	res, err := db.conn.Exec(`
		INSERT INTO sources (path, type, last_scanned)
		VALUES (?, ?, NULL)
	`, path, sourceType)
	if err != nil {
		return 0, fmt.Errorf("failed to insert source %s: %w", path, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for source %s: %w", path, err)
	}
	return id, nil
}

// FindSourceByPath retrieves a source from the database by its path.
func (db *DB) FindSourceByPath(path string) (*Source, error) {
	var s Source
	row := db.conn.QueryRow(`
		SELECT id, path, type, last_scanned
		FROM sources WHERE path = ?
	`, path)

	err := row.Scan(&s.ID, &s.Path, &s.Type, &s.LastScanned)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Source not found
		}
		return nil, fmt.Errorf("failed to find source by path %s: %w", path, err)
	}
	return &s, nil
}

// GetAllSources retrieves all stored sources from the database.
func (db *DB) GetAllSources() ([]Source, error) {
	rows, err := db.conn.Query(`
		SELECT id, path, type, last_scanned
		FROM sources
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get all sources: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		var s Source
		if err := rows.Scan(&s.ID, &s.Path, &s.Type, &s.LastScanned); err != nil {
			return nil, fmt.Errorf("failed to scan source row: %w", err)
		}
		sources = append(sources, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate source rows: %w", err)
	}
	return sources, nil
}

// DeleteSource removes a source and all cards imported from it in a
// single transaction, so a failure never leaves orphaned cards behind.
func (db *DB) DeleteSource(sourceID int64) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM cards WHERE source_id = ?`, sourceID); err != nil {
		return fmt.Errorf("failed to delete cards for source ID %d: %w", sourceID, err)
	}
	if _, err := tx.Exec(`DELETE FROM sources WHERE id = ?`, sourceID); err != nil {
		return fmt.Errorf("failed to delete source ID %d: %w", sourceID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit source deletion: %w", err)
	}
	return nil
}

// UpdateSourceLastScanned updates the last_scanned timestamp for a source.
func (db *DB) UpdateSourceLastScanned(sourceID int64) error {
	_, err := db.conn.Exec(`
		UPDATE sources
		SET last_scanned = ?
		WHERE id = ?
	`, time.Now(), sourceID)
	if err != nil {
		return fmt.Errorf("failed to update last scanned for source ID %d: %w", sourceID, err)
	}
	return nil
}
