package bunstore

import (
	"context"
	"time"

	"github.com/goliatone/go-authstate"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ProfileRecord is one profile document row. The primary key is
// derived from collection and document id so the same user id can
// exist in more than one collection.
type ProfileRecord struct {
	bun.BaseModel `bun:"table:profile_documents,alias:doc"`
	ID            uuid.UUID      `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Collection    string         `bun:"collection,notnull" json:"collection,omitempty"`
	DocumentID    string         `bun:"document_id,notnull" json:"document_id,omitempty"`
	Data          map[string]any `bun:"data" json:"data,omitempty"`
	CreatedAt     *time.Time     `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time     `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Store is the bun backed ProfileStore.
type Store struct {
	db     *bun.DB
	repo   repository.Repository[*ProfileRecord]
	logger authstate.Logger
}

// New builds a store over an initialized bun DB.
func New(db *bun.DB) *Store {
	repo := repository.NewRepository[*ProfileRecord](db, repository.ModelHandlers[*ProfileRecord]{
		NewRecord: func() *ProfileRecord { return &ProfileRecord{} },
		GetID: func(r *ProfileRecord) uuid.UUID {
			if r == nil {
				return uuid.Nil
			}
			return r.ID
		},
		SetID: func(r *ProfileRecord, id uuid.UUID) {
			if r != nil {
				r.ID = id
			}
		},
		// GetByIdentifierTx resolves the column through this handler
		// before checking whether the identifier is a uuid.
		GetIdentifier: func() string { return "id" },
	})

	return &Store{
		db:     db,
		repo:   repo,
		logger: noopLogger{},
	}
}

func (s *Store) WithLogger(logger authstate.Logger) *Store {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// Init creates the backing table when it does not exist yet.
func (s *Store) Init(ctx context.Context) error {
	_, err := s.db.NewCreateTable().
		Model((*ProfileRecord)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create profile_documents table")
	}
	s.logger.Debug("profile_documents table ready")
	return nil
}

// GetDocument loads the document stored for collection/id.
func (s *Store) GetDocument(ctx context.Context, collection, id string) (authstate.Document, error) {
	rowID, err := rowID(collection, id)
	if err != nil {
		return nil, err
	}

	record, err := s.repo.GetByIdentifier(ctx, rowID.String())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, notFound(collection, id)
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load profile document")
	}

	return record.Data, nil
}

// SetDocument writes the document. With merge set, incoming keys are
// merged into the stored document, nested maps included; otherwise the
// stored document is replaced. Both paths run in one transaction.
func (s *Store) SetDocument(ctx context.Context, collection, id string, data authstate.Document, merge bool) error {
	rowID, err := rowID(collection, id)
	if err != nil {
		return err
	}

	err = s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record, err := s.repo.GetByIdentifierTx(ctx, tx, rowID.String())
		if err != nil {
			if !repository.IsRecordNotFound(err) {
				return err
			}
			_, err = s.repo.CreateTx(ctx, tx, &ProfileRecord{
				ID:         rowID,
				Collection: collection,
				DocumentID: id,
				Data:       data,
			})
			return err
		}

		if merge {
			if record.Data == nil {
				record.Data = map[string]any{}
			}
			mergeDocument(record.Data, data)
		} else {
			record.Data = data
		}

		now := time.Now()
		record.UpdatedAt = &now
		_, err = s.repo.UpdateTx(ctx, tx, record, repository.UpdateByID(rowID.String()))
		return err
	})
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist profile document")
	}

	return nil
}

// DeleteDocument removes the document row. Missing rows are a no-op.
func (s *Store) DeleteDocument(ctx context.Context, collection, id string) error {
	rowID, err := rowID(collection, id)
	if err != nil {
		return err
	}

	_, err = s.db.NewDelete().
		Model((*ProfileRecord)(nil)).
		Where("?TableAlias.id = ?", rowID.String()).
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete profile document")
	}
	return nil
}

var _ authstate.ProfileStore = (*Store)(nil)

// rowID derives the deterministic primary key for a collection/id pair.
func rowID(collection, id string) (uuid.UUID, error) {
	rid, err := hashid.NewUUID(collection + "/" + id)
	if err != nil {
		return uuid.Nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid profile document key").
			WithMetadata(map[string]any{
				"collection": collection,
				"id":         id,
			})
	}
	return rid, nil
}

func notFound(collection, id string) error {
	clone := authstate.ErrDocumentNotFound.Clone()
	if clone == nil {
		return authstate.ErrDocumentNotFound
	}
	return clone.WithMetadata(map[string]any{
		"collection": collection,
		"id":         id,
	})
}

func mergeDocument(dst, src map[string]any) {
	for k, v := range src {
		if sub, ok := v.(map[string]any); ok {
			if existing, ok := dst[k].(map[string]any); ok {
				mergeDocument(existing, sub)
				continue
			}
		}
		dst[k] = v
	}
}

type noopLogger struct{}

func (noopLogger) Debug(format string, args ...any) {}
func (noopLogger) Info(format string, args ...any)  {}
func (noopLogger) Warn(format string, args ...any)  {}
func (noopLogger) Error(format string, args ...any) {}
