package dbow2_test

import (
	"context"
	"fmt"
	"log"

	dbow2 "github.com/AutonomousFieldRoboticsLab/DBoW2"
	"github.com/AutonomousFieldRoboticsLab/DBoW2/testutil"
)

func Example() {
	ctx := context.Background()

	// In a real application every image contributes the binary descriptors
	// an extractor found in it (ORB, BRIEF, BRISK, ...). Synthetic ones
	// keep the example self-contained.
	images := testutil.NewRNG(1).ClusteredImages(10, 50, 5, 32, 10)

	trait, err := dbow2.NewBinary(32)
	if err != nil {
		log.Fatal(err)
	}

	voc, err := dbow2.Train(ctx, trait, images, dbow2.Params{
		K:         4,
		Depth:     3,
		Weighting: dbow2.TFIDF,
		Scoring:   dbow2.L1Norm,
	})
	if err != nil {
		log.Fatal(err)
	}

	db := dbow2.NewDatabase(voc)
	for _, img := range images {
		if _, err := db.Add(img); err != nil {
			log.Fatal(err)
		}
	}

	results, err := db.Query(images[0], 1)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(results[0].Entry)
	// Output: 0
}
