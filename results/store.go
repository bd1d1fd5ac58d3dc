package results

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/hupe1980/quantcs/blobstore"
	"github.com/hupe1980/quantcs/codec"
	"github.com/hupe1980/quantcs/resource"
)

// ErrNotFound is returned by Load for an unknown report ID.
var ErrNotFound = errors.New("results: report not found")

// DefaultPrefix is the blob prefix reports are stored under.
const DefaultPrefix = "reports"

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithPrefix sets the blob prefix.
func WithPrefix(prefix string) StoreOption {
	return func(s *Store) { s.prefix = prefix }
}

// WithCompression sets the compression for newly saved reports.
func WithCompression(c Compression) StoreOption {
	return func(s *Store) { s.compression = c }
}

// WithCodec sets the encoder for newly saved reports.
func WithCodec(c codec.Codec) StoreOption {
	return func(s *Store) { s.codec = c }
}

// WithController throttles uploads through the controller's IO limit.
func WithController(c *resource.Controller) StoreOption {
	return func(s *Store) { s.rc = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// Store persists reports to a blob store.
type Store struct {
	blobs       blobstore.BlobStore
	prefix      string
	compression Compression
	codec       codec.Codec
	rc          *resource.Controller
	logger      *slog.Logger
}

// NewStore creates a report store on top of blobs.
func NewStore(blobs blobstore.BlobStore, opts ...StoreOption) *Store {
	s := &Store{
		blobs:       blobs,
		prefix:      DefaultPrefix,
		compression: CompressionZSTD,
		codec:       codec.Default,
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) name(id uuid.UUID, c Compression) string {
	return path.Join(s.prefix, id.String()+c.extension())
}

// Save encodes, compresses and writes r. It returns the blob name.
func (s *Store) Save(ctx context.Context, r *Report) (string, error) {
	if r.ID == uuid.Nil {
		return "", errors.New("results: report has no ID")
	}

	raw, err := s.codec.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("results: encode report %s: %w", r.ID, err)
	}
	data, err := compress(raw, s.compression)
	if err != nil {
		return "", fmt.Errorf("results: compress report %s: %w", r.ID, err)
	}

	if err := s.rc.AcquireIO(ctx, len(data)); err != nil {
		return "", err
	}

	name := s.name(r.ID, s.compression)
	if err := s.blobs.Put(ctx, name, data); err != nil {
		return "", fmt.Errorf("results: write %s: %w", name, err)
	}

	s.logger.Debug("report saved",
		slog.String("id", r.ID.String()),
		slog.String("kind", string(r.Kind)),
		slog.String("compression", string(s.compression)),
		slog.Int("bytes", len(data)),
		slog.Int("raw_bytes", len(raw)),
	)
	return name, nil
}

var loadOrder = []Compression{CompressionZSTD, CompressionLZ4, CompressionNone}

// Load reads the report with the given ID in whatever compression it was saved.
func (s *Store) Load(ctx context.Context, id uuid.UUID) (*Report, error) {
	for _, c := range loadOrder {
		data, err := s.blobs.Get(ctx, s.name(id, c))
		if errors.Is(err, blobstore.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}

		raw, err := decompress(data, c)
		if err != nil {
			return nil, fmt.Errorf("report %s: %w", id, err)
		}

		// Every codec writes standard JSON.
		var r Report
		if err := s.codec.Unmarshal(raw, &r); err != nil {
			return nil, fmt.Errorf("results: decode report %s: %w", id, err)
		}
		return &r, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Delete removes every stored encoding of the report.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	for _, c := range loadOrder {
		if err := s.blobs.Delete(ctx, s.name(id, c)); err != nil {
			return err
		}
	}
	return nil
}

// List returns the IDs of all stored reports, sorted.
func (s *Store) List(ctx context.Context) ([]uuid.UUID, error) {
	names, err := s.blobs.List(ctx, s.prefix+"/")
	if err != nil {
		return nil, err
	}

	seen := make(map[uuid.UUID]struct{}, len(names))
	for _, name := range names {
		base := path.Base(name)
		idx := strings.Index(base, ".json")
		if idx < 0 {
			continue
		}
		id, err := uuid.Parse(base[:idx])
		if err != nil {
			s.logger.Warn("skipping unrecognized blob", slog.String("name", name))
			continue
		}
		seen[id] = struct{}{}
	}

	ids := make([]uuid.UUID, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids, nil
}
