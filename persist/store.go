package persist

import (
	"context"
	"fmt"
	"io"

	"github.com/AutonomousFieldRoboticsLab/DBoW2/blobstore"
	"github.com/AutonomousFieldRoboticsLab/DBoW2/database"
	"github.com/AutonomousFieldRoboticsLab/DBoW2/descriptor"
	"github.com/AutonomousFieldRoboticsLab/DBoW2/vocab"
)

// SaveVocabularyTo writes voc into store under name.
func SaveVocabularyTo(ctx context.Context, store blobstore.Store, name string, voc *vocab.Vocabulary, opts ...SaveOption) error {
	return saveTo(ctx, store, name, func(w io.Writer) error {
		return SaveVocabulary(w, voc, opts...)
	})
}

// SaveDatabaseTo writes db into store under name.
func SaveDatabaseTo(ctx context.Context, store blobstore.Store, name string, db *database.Database, opts ...SaveOption) error {
	return saveTo(ctx, store, name, func(w io.Writer) error {
		return SaveDatabase(w, db, opts...)
	})
}

// LoadVocabularyFrom reads the vocabulary stored under name.
func LoadVocabularyFrom(ctx context.Context, store blobstore.Store, name string, trait descriptor.Trait, opts ...LoadOption) (*vocab.Vocabulary, error) {
	r, err := store.Open(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("open blob %s: %w", name, err)
	}
	defer r.Close()
	return LoadVocabulary(r, trait, opts...)
}

// LoadDatabaseFrom reads the database stored under name.
func LoadDatabaseFrom(ctx context.Context, store blobstore.Store, name string, trait descriptor.Trait, opts ...LoadOption) (*database.Database, error) {
	r, err := store.Open(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("open blob %s: %w", name, err)
	}
	defer r.Close()
	return LoadDatabase(r, trait, opts...)
}

// StatFrom summarizes the blob stored under name without loading it.
func StatFrom(ctx context.Context, store blobstore.Store, name string) (Info, error) {
	r, err := store.Open(ctx, name)
	if err != nil {
		return Info{}, fmt.Errorf("open blob %s: %w", name, err)
	}
	defer r.Close()
	return Stat(r)
}

func saveTo(ctx context.Context, store blobstore.Store, name string, write func(io.Writer) error) error {
	w, err := store.Create(ctx, name)
	if err != nil {
		return fmt.Errorf("create blob %s: %w", name, err)
	}
	if err := write(w); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}
