package storage

const schema = `
-- The 'cards' table stores each flashcard together with its SM-2
-- scheduling state. The id is derived from normalized card content.
CREATE TABLE IF NOT EXISTS cards (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    source_id INTEGER,
    question TEXT NOT NULL,
    answer TEXT NOT NULL,
    context TEXT NOT NULL DEFAULT '',
    ease_factor REAL NOT NULL DEFAULT 2.5,
    interval INTEGER NOT NULL DEFAULT 1,
    next_review DATETIME NOT NULL,
    review_count INTEGER NOT NULL DEFAULT 0,
    correct_count INTEGER NOT NULL DEFAULT 0,
    incorrect_count INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME NOT NULL,

    FOREIGN KEY(source_id) REFERENCES sources(id)
);

-- Due-card selection filters on user and next_review range.
CREATE INDEX IF NOT EXISTS idx_cards_user_due ON cards(user_id, next_review);

-- The 'reviews' table is the durable review history: one row per
-- scheduling decision, append-only.
CREATE TABLE IF NOT EXISTS reviews (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    card_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    quality INTEGER NOT NULL,
    time_taken INTEGER NOT NULL DEFAULT 0,
    old_ease REAL NOT NULL,
    new_ease REAL NOT NULL,
    old_interval INTEGER NOT NULL,
    new_interval INTEGER NOT NULL,
    next_review DATETIME NOT NULL,
    stage TEXT NOT NULL,
    is_lapse INTEGER NOT NULL DEFAULT 0,
    reviewed_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_reviews_user_time ON reviews(user_id, reviewed_at);

-- The 'sources' table tracks where cards are imported from, either a
-- local directory or a git repository.
CREATE TABLE IF NOT EXISTS sources (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    path TEXT NOT NULL UNIQUE,
    type TEXT NOT NULL DEFAULT 'local',
    last_scanned DATETIME
);
`
