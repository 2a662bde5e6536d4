package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/clearcity/api/internal/config"
	"github.com/clearcity/api/internal/database"
	"github.com/clearcity/api/internal/repository"
	"github.com/clearcity/api/internal/storage"
)

type Result struct {
	Orphans []string `json:"orphans"`
	Deleted int64    `json:"deleted"`
	Failed  []string `json:"failed,omitempty"`
}

func main() {
	del := flag.Bool("delete", false, "Delete orphaned images instead of only listing them")
	workers := flag.Int("workers", 4, "Number of parallel delete workers")
	outputFile := flag.String("output", "", "Optional JSON file for the results")
	flag.Parse()

	cfg := config.Load()
	ctx := context.Background()

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	images, err := storage.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open image store: %v", err)
	}

	referenced, err := referencedImages(ctx, repository.NewReportRepository(db), repository.NewUserRepository(db))
	if err != nil {
		log.Fatalf("Failed to load image references: %v", err)
	}

	var stored []string
	for _, folder := range []string{storage.FolderReports, storage.FolderProfiles} {
		urls, err := images.List(ctx, folder)
		if err != nil {
			log.Fatalf("Failed to list %s: %v", folder, err)
		}
		stored = append(stored, urls...)
	}

	result := &Result{Orphans: findOrphans(stored, referenced)}
	fmt.Printf("[Audit] %d stored images, %d referenced, %d orphaned\n", len(stored), len(referenced), len(result.Orphans))

	if *del && len(result.Orphans) > 0 {
		start := time.Now()
		deleteAll(ctx, images, result, *workers)
		fmt.Printf("[Audit] deleted %d/%d orphans in %v\n", result.Deleted, len(result.Orphans), time.Since(start))
	} else {
		for _, url := range result.Orphans {
			fmt.Println(url)
		}
	}

	if *outputFile != "" {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			log.Fatalf("Failed to encode results: %v", err)
		}
		if err := os.WriteFile(*outputFile, data, 0o644); err != nil {
			log.Fatalf("Failed to write results: %v", err)
		}
		fmt.Printf("[Audit] results saved to %s\n", *outputFile)
	}
}

func referencedImages(ctx context.Context, reports *repository.ReportRepository, users *repository.UserRepository) (map[string]struct{}, error) {
	refs := make(map[string]struct{})

	reportURLs, err := reports.ImageURLs(ctx)
	if err != nil {
		return nil, err
	}
	profileURLs, err := users.ProfileImages(ctx)
	if err != nil {
		return nil, err
	}

	for _, url := range append(reportURLs, profileURLs...) {
		refs[url] = struct{}{}
	}
	return refs, nil
}

// findOrphans returns the stored images no row refers to, sorted.
func findOrphans(stored []string, referenced map[string]struct{}) []string {
	orphans := []string{}
	for _, url := range stored {
		if _, ok := referenced[url]; !ok {
			orphans = append(orphans, url)
		}
	}
	sort.Strings(orphans)
	return orphans
}

type deleter interface {
	Delete(ctx context.Context, url string) error
}

func deleteAll(ctx context.Context, images deleter, result *Result, workers int) {
	if workers < 1 {
		workers = 1
	}

	urlChan := make(chan string, workers*2)
	var deleted int64
	var failedMu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for url := range urlChan {
				if err := images.Delete(ctx, url); err != nil {
					log.Printf("[Audit] failed to delete %s: %v", url, err)
					failedMu.Lock()
					result.Failed = append(result.Failed, url)
					failedMu.Unlock()
					continue
				}
				atomic.AddInt64(&deleted, 1)
			}
		}()
	}

	for _, url := range result.Orphans {
		urlChan <- url
	}
	close(urlChan)
	wg.Wait()

	result.Deleted = deleted
	sort.Strings(result.Failed)
}
