package mysql

// Natural key is (name, lat, lon): the dataset has no stable identifier,
// and re-ingesting the same guide must update rows in place.
const upsertRestaurantsPrefix = `INSERT INTO restaurants
  (name, address, location, price, cuisine, lat, lon, phone, url, website_url, award, green_star, facilities, description)
VALUES `

const upsertRestaurantsOnDup = ` ON DUPLICATE KEY UPDATE
  address     = VALUES(address),
  location    = VALUES(location),
  price       = VALUES(price),
  cuisine     = VALUES(cuisine),
  phone       = VALUES(phone),
  url         = VALUES(url),
  website_url = VALUES(website_url),
  award       = VALUES(award),
  green_star  = VALUES(green_star),
  facilities  = VALUES(facilities),
  description = VALUES(description),
  updated_at  = CURRENT_TIMESTAMP
`

const insertIngestRunSQL = `
INSERT INTO ingest_runs (source, rows_kept, rows_dropped)
VALUES (?, ?, ?)
`

// -----------------------------------------------------------------------------
// READ QUERIES
// -----------------------------------------------------------------------------

// Coarse bounding-box prefilter; the exact Haversine pass happens in the
// app layer. Relies on the (lat, lon) index.
const listWithinBoxSQL = `
SELECT
  id, name, address, location, price, cuisine, lat, lon,
  phone, url, website_url, award, green_star, facilities, description
FROM restaurants
WHERE lat BETWEEN ? AND ?
  AND lon BETWEEN ? AND ?
`

const countRestaurantsSQL = `SELECT COUNT(*) FROM restaurants`
