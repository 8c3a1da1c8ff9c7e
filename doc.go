// Package dbow2 implements bag-of-words image retrieval over binary local
// descriptors (BRIEF, ORB, BRISK and friends).
//
// A hierarchical vocabulary discretizes descriptor space into visual words;
// images become sparse weighted word vectors; an inverted-index database
// ranks stored images against a query in time proportional to the words they
// share.
//
// # Quick Start
//
// Train a vocabulary from a corpus of descriptor sets, one set per image:
//
//	trait, _ := dbow2.NewBinary(32) // e.g. 256-bit ORB
//	voc, _ := dbow2.Train(ctx, trait, images, dbow2.Params{
//	    K:         10,
//	    Depth:     5,
//	    Weighting: dbow2.TFIDF,
//	    Scoring:   dbow2.L1Norm,
//	})
//
// Index images and query for the most similar ones:
//
//	db := dbow2.NewDatabase(voc, dbow2.WithDirectIndex(2))
//	for _, img := range images {
//	    db.Add(img)
//	}
//	results, _ := db.Query(queryDescriptors, 10)
//
// Persist and reload. Loading streams the file in a single pass and takes
// time linear in its size, so even million-word vocabularies open quickly:
//
//	persist.SaveDatabaseFile("db.dbw2", db)
//	db, _ = persist.LoadDatabaseFile("db.dbw2", trait)
//
// The subpackages carry the implementation: descriptor (descriptor traits),
// bow (sparse vectors and scoring), vocab (tree building and quantization),
// database (inverted index), persist (file format) and blobstore (where
// files live). This package re-exports the common surface so typical use
// needs a single import.
package dbow2
