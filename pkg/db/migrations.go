package db

// migrationsSQL is the embedded schema. InitDB splits it on ';' and applies
// each statement, so it must not contain ';' inside statement bodies.
const migrationsSQL = `
CREATE TABLE IF NOT EXISTS dictionaries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	revision TEXT NOT NULL,
	version INTEGER NOT NULL DEFAULT 0,
	author TEXT NOT NULL DEFAULT '',
	url TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	attribution TEXT NOT NULL DEFAULT '',
	styles TEXT NOT NULL DEFAULT '',
	is_enabled INTEGER NOT NULL DEFAULT 1,
	priority INTEGER NOT NULL,
	added_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_dictionaries_title_revision ON dictionaries(title, revision);

CREATE TABLE IF NOT EXISTS tags (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	dictionary_id INTEGER NOT NULL,
	name TEXT NOT NULL,
	category TEXT NOT NULL DEFAULT '',
	sort_order INTEGER NOT NULL DEFAULT 0,
	notes TEXT NOT NULL DEFAULT '',
	score INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_tags_dictionary ON tags(dictionary_id);

CREATE TABLE IF NOT EXISTS terms (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	dictionary_id INTEGER NOT NULL,
	expression TEXT NOT NULL,
	reading TEXT NOT NULL DEFAULT '',
	definition_tags TEXT NOT NULL DEFAULT '',
	rules TEXT NOT NULL DEFAULT '',
	score INTEGER NOT NULL DEFAULT 0,
	glossary TEXT NOT NULL DEFAULT '[]',
	sequence INTEGER NOT NULL DEFAULT 0,
	term_tags TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_terms_expression ON terms(expression);
CREATE INDEX IF NOT EXISTS idx_terms_reading ON terms(reading);
CREATE INDEX IF NOT EXISTS idx_terms_dictionary ON terms(dictionary_id);

CREATE TABLE IF NOT EXISTS kanji (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	dictionary_id INTEGER NOT NULL,
	character TEXT NOT NULL,
	onyomi TEXT NOT NULL DEFAULT '',
	kunyomi TEXT NOT NULL DEFAULT '',
	tags TEXT NOT NULL DEFAULT '',
	meanings TEXT NOT NULL DEFAULT '[]',
	stats TEXT NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_kanji_character ON kanji(character);
CREATE INDEX IF NOT EXISTS idx_kanji_dictionary ON kanji(dictionary_id);

CREATE TABLE IF NOT EXISTS term_meta (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	dictionary_id INTEGER NOT NULL,
	expression TEXT NOT NULL,
	mode TEXT NOT NULL,
	data TEXT NOT NULL DEFAULT 'null'
);

CREATE INDEX IF NOT EXISTS idx_term_meta_expression ON term_meta(expression);
CREATE INDEX IF NOT EXISTS idx_term_meta_dictionary ON term_meta(dictionary_id);

CREATE TABLE IF NOT EXISTS kanji_meta (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	dictionary_id INTEGER NOT NULL,
	character TEXT NOT NULL,
	mode TEXT NOT NULL,
	data TEXT NOT NULL DEFAULT 'null'
);

CREATE INDEX IF NOT EXISTS idx_kanji_meta_character ON kanji_meta(character);
CREATE INDEX IF NOT EXISTS idx_kanji_meta_dictionary ON kanji_meta(dictionary_id)
`
