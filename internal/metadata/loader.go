package metadata

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math"

	"github.com/fxamacker/cbor/v2"

	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/internal/index"
	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/pkg/blob"
	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Multifield-Retrieval-Engine/pkg/postgres"
)

var decMode = func() cbor.DecMode {
	dm, err := cbor.DecOptions{
		MaxMapPairs: math.MaxInt32,
	}.DecMode()
	if err != nil {
		panic(err)
	}
	return dm
}()

// LoadBlobs reads the authority, popularity and title tables from CBOR maps
// keyed by document id. Title shards are merged in order; a later shard wins
// when two shards carry the same id.
func LoadBlobs(ctx context.Context, store blob.Store, cfg config.MetadataConfig) (*Store, error) {
	logger := slog.Default().With("component", "metadata")

	var authority map[uint32]float64
	if err := loadBlob(ctx, store, cfg.Folder, cfg.Authority, &authority); err != nil {
		return nil, err
	}
	var popularity map[uint32]int64
	if cfg.Popularity != "" {
		if err := loadBlob(ctx, store, cfg.Folder, cfg.Popularity, &popularity); err != nil {
			return nil, err
		}
	}
	titles := make(map[index.DocID]string)
	for _, shard := range cfg.TitleShards {
		var part map[uint32]string
		if err := loadBlob(ctx, store, cfg.Folder, shard, &part); err != nil {
			return nil, err
		}
		for id, t := range part {
			titles[index.DocID(id)] = t
		}
	}

	s := New(convert(authority), convert(popularity), titles)
	a, p, t := s.Sizes()
	logger.Info("metadata loaded", "source", "blob", "authority", a, "popularity", p, "titles", t)
	return s, nil
}

func loadBlob(ctx context.Context, store blob.Store, folder, name string, v any) error {
	data, err := store.Get(ctx, folder, name)
	if err != nil {
		return fmt.Errorf("fetching metadata %s: %w", blob.Key(folder, name), err)
	}
	if err := decMode.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding metadata %s: %w", blob.Key(folder, name), err)
	}
	return nil
}

func convert[V any](m map[uint32]V) map[index.DocID]V {
	out := make(map[index.DocID]V, len(m))
	for id, v := range m {
		out[index.DocID(id)] = v
	}
	return out
}

// EncodeTable serializes a metadata table in the format LoadBlobs reads.
func EncodeTable[V any](m map[index.DocID]V) ([]byte, error) {
	wire := make(map[uint32]V, len(m))
	for id, v := range m {
		wire[uint32(id)] = v
	}
	data, err := cbor.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("encoding metadata table: %w", err)
	}
	return data, nil
}

const (
	authorityQuery  = `SELECT doc_id, score FROM page_rank`
	popularityQuery = `SELECT doc_id, views FROM page_views`
	titlesQuery     = `SELECT doc_id, title FROM titles`
)

// LoadPostgres reads the three tables from PostgreSQL.
func LoadPostgres(ctx context.Context, client *postgres.Client) (*Store, error) {
	authority := make(map[index.DocID]float64)
	if err := scanTable(ctx, client.DB, authorityQuery, func(rows *sql.Rows) error {
		var id int64
		var score float64
		if err := rows.Scan(&id, &score); err != nil {
			return err
		}
		authority[index.DocID(id)] = score
		return nil
	}); err != nil {
		return nil, fmt.Errorf("loading page_rank: %w", err)
	}

	popularity := make(map[index.DocID]int64)
	if err := scanTable(ctx, client.DB, popularityQuery, func(rows *sql.Rows) error {
		var id, views int64
		if err := rows.Scan(&id, &views); err != nil {
			return err
		}
		popularity[index.DocID(id)] = views
		return nil
	}); err != nil {
		return nil, fmt.Errorf("loading page_views: %w", err)
	}

	titles := make(map[index.DocID]string)
	if err := scanTable(ctx, client.DB, titlesQuery, func(rows *sql.Rows) error {
		var id int64
		var title string
		if err := rows.Scan(&id, &title); err != nil {
			return err
		}
		titles[index.DocID(id)] = title
		return nil
	}); err != nil {
		return nil, fmt.Errorf("loading titles: %w", err)
	}

	s := New(authority, popularity, titles)
	a, p, t := s.Sizes()
	slog.Default().With("component", "metadata").Info("metadata loaded", "source", "postgres", "authority", a, "popularity", p, "titles", t)
	return s, nil
}

func scanTable(ctx context.Context, db *sql.DB, query string, scan func(*sql.Rows) error) error {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}
