// Command genknowledge writes the default knowledge_core_<crop>.json records
// derived from the built-in crop calendar and disease tables. Existing files
// are left alone unless -force is given, so protocols learned at runtime
// survive a regeneration.
//
// Usage:
//
//	go run ./cmd/genknowledge -out data/knowledge
//	go run ./cmd/genknowledge -out data/knowledge -crop Paddy -force
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"slices"

	"github.com/couchcryptid/crop-advisory-service/internal/adapter/knowledge"
	"github.com/couchcryptid/crop-advisory-service/internal/domain"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "data/knowledge", "directory to write knowledge files into")
	crop := flag.String("crop", "", "only generate this crop (default: every calendar crop)")
	force := flag.Bool("force", false, "overwrite existing knowledge files")
	flag.Parse()

	ctx := context.Background()
	calendar := domain.DefaultCalendar()
	risks := domain.DefaultRiskModel()
	store := knowledge.NewStore(*out, slog.New(slog.NewTextHandler(io.Discard, nil)))

	crops := calendar.Crops()
	if *crop != "" {
		cc, ok := calendar.Lookup(*crop)
		if !ok {
			return fmt.Errorf("unknown crop %q (known: %v)", *crop, crops)
		}
		crops = []string{cc.Crop}
	}

	if !*force && *crop == "" {
		written, err := store.Bootstrap(ctx, calendar, risks)
		if err != nil {
			return fmt.Errorf("bootstrap knowledge: %w", err)
		}
		for _, name := range crops {
			if !slices.Contains(written, name) {
				log.Printf("%s: skipped (file exists or no timeline)", name)
			}
		}
		printStats(ctx, store, written)
		return nil
	}

	var written []string
	for _, name := range crops {
		if !*force {
			if _, err := store.Get(ctx, name); err == nil {
				log.Printf("%s: exists, skipped", name)
				continue
			}
		}
		k, err := domain.DefaultKnowledge(calendar, risks, name)
		if err != nil {
			log.Printf("%s: %v", name, err)
			continue
		}
		if err := store.Put(ctx, name, k); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
		written = append(written, name)
	}
	printStats(ctx, store, written)
	return nil
}

func printStats(ctx context.Context, store *knowledge.Store, crops []string) {
	for _, name := range crops {
		k, err := store.Get(ctx, name)
		if err != nil {
			log.Printf("%s: re-read failed: %v", name, err)
			continue
		}
		path, _ := store.Path(name)
		log.Printf("wrote %s: %d phases, %d protocols, %d days", path, k.PhaseCount(), len(k.DiseaseProtocols), k.CropInfo.TotalDurationDays)
	}
	log.Printf("total: %d files written", len(crops))
}
