package mysql

const upsertTermSQL = `
INSERT INTO terms
  (taxonomy, id, slug, name)
VALUES
  (?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  slug       = VALUES(slug),
  name       = VALUES(name),
  updated_at = CURRENT_TIMESTAMP
`

// Note: ROWS is reserved in MySQL 8; the column is called payload.
const upsertFieldSQL = `
INSERT INTO field_values
  (object_key, field_name, payload)
VALUES
  (?, ?, ?)
ON DUPLICATE KEY UPDATE
  payload    = VALUES(payload),
  updated_at = CURRENT_TIMESTAMP
`

const upsertPageSQL = `
INSERT INTO pages
  (id, permalink, singular, blocks)
VALUES
  (?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  permalink  = VALUES(permalink),
  singular   = VALUES(singular),
  blocks     = VALUES(blocks),
  updated_at = CURRENT_TIMESTAMP
`

// -----------------------------------------------------------------------------
// READ QUERIES
// -----------------------------------------------------------------------------

const getTermSQL = `
SELECT id, taxonomy, slug, name
FROM terms
WHERE taxonomy = ? AND id = ?
`

const getFieldSQL = `
SELECT payload
FROM field_values
WHERE object_key = ? AND field_name = ?
`

const getPageSQL = `
SELECT id, permalink, singular, blocks
FROM pages
WHERE id = ?
`

const listPageIDsSQL = `
SELECT id
FROM pages
ORDER BY id
LIMIT ?
`
