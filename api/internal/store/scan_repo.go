package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"allergen-scan/api/internal/menu"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
)

// Open connects through the pgx stdlib driver and checks the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("store: empty DSN")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(1 * time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db.Ping: %w", err)
	}
	return db, nil
}

// ScanRepo persists successful scans. It implements menu.Recorder.
type ScanRepo struct{ DB *sql.DB }

func NewScanRepo(db *sql.DB) *ScanRepo { return &ScanRepo{DB: db} }

// ScanRow is one stored scan.
type ScanRow struct {
	ID             uuid.UUID
	CreatedAt      time.Time
	Variant        string
	PromptVersion  string
	Engine         string
	ImageHash      string
	RestaurantName string
	Location       *menu.Location
	Source         string
	Items          []menu.Item
}

const schema = `
create table if not exists menu_scans (
  id              uuid primary key,
  created_at      timestamptz not null default now(),
  variant         text not null,
  prompt_version  text not null,
  engine          text not null,
  image_hash      text not null,
  restaurant_name text,
  latitude        double precision,
  longitude       double precision,
  source          text,
  items_json      jsonb not null
);
create index if not exists menu_scans_restaurant_idx on menu_scans (restaurant_name, created_at desc);
create index if not exists menu_scans_image_hash_idx on menu_scans (image_hash);`

func (r *ScanRepo) EnsureSchema(ctx context.Context) error {
	_, err := r.DB.ExecContext(ctx, schema)
	return err
}

func (r *ScanRepo) Ping(ctx context.Context) error {
	return r.DB.PingContext(ctx)
}

// Record inserts a scan with a fresh id.
func (r *ScanRepo) Record(ctx context.Context, rec menu.Record) error {
	js, err := json.Marshal(rec.Items)
	if err != nil {
		return fmt.Errorf("encode items: %w", err)
	}
	var lat, lon sql.NullFloat64
	if rec.Location != nil {
		lat = sql.NullFloat64{Float64: rec.Location.Latitude, Valid: true}
		lon = sql.NullFloat64{Float64: rec.Location.Longitude, Valid: true}
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	const q = `
insert into menu_scans (
  id, created_at, variant, prompt_version, engine, image_hash,
  restaurant_name, latitude, longitude, source, items_json
) values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`
	_, err = r.DB.ExecContext(ctx, q,
		uuid.New(), createdAt, rec.Variant, rec.PromptVersion, rec.Engine, rec.ImageHash,
		nullString(rec.RestaurantName), lat, lon, nullString(rec.Source), js,
	)
	return err
}

// Recent returns the newest scans, optionally for one restaurant.
func (r *ScanRepo) Recent(ctx context.Context, restaurant string, limit int) ([]ScanRow, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	const q = `
select id, created_at, variant, prompt_version, engine, image_hash,
       coalesce(restaurant_name,''), latitude, longitude, coalesce(source,''), items_json
from menu_scans
where ($1 = '' or restaurant_name = $1)
order by created_at desc
limit $2`
	rows, err := r.DB.QueryContext(ctx, q, restaurant, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ScanRow
	for rows.Next() {
		var (
			row      ScanRow
			lat, lon sql.NullFloat64
			js       []byte
		)
		if err := rows.Scan(&row.ID, &row.CreatedAt, &row.Variant, &row.PromptVersion, &row.Engine,
			&row.ImageHash, &row.RestaurantName, &lat, &lon, &row.Source, &js); err != nil {
			return nil, err
		}
		row.Location = locationFrom(lat, lon)
		if err := json.Unmarshal(js, &row.Items); err != nil {
			return nil, fmt.Errorf("decode items of scan %s: %w", row.ID, err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func locationFrom(lat, lon sql.NullFloat64) *menu.Location {
	if !lat.Valid || !lon.Valid {
		return nil
	}
	return &menu.Location{Latitude: lat.Float64, Longitude: lon.Float64}
}

func nullString(s string) sql.NullString {
	s = strings.TrimSpace(s)
	return sql.NullString{String: s, Valid: s != ""}
}

// SafeDSNSummary renders a DSN for logs without the password.
func SafeDSNSummary(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.Host == "" {
		return "dsn: parse error"
	}
	user := u.User.Username()
	host := u.Host
	port := ""
	if h, p, err := net.SplitHostPort(u.Host); err == nil {
		host, port = h, p
	}
	db := strings.TrimPrefix(u.Path, "/")
	if port == "" {
		return fmt.Sprintf("host=%s db=%s user=%s", host, db, user)
	}
	return fmt.Sprintf("host=%s port=%s db=%s user=%s", host, port, db, user)
}
