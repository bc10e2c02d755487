package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	viral "github.com/USBABC1/V75VIRAL"
	"github.com/USBABC1/V75VIRAL/config"
	"github.com/USBABC1/V75VIRAL/models"
)

// One-shot search from the command line: runs the full pipeline once and
// prints the ranked results as JSON, without persisting anything.
func main() {
	query := flag.String("query", "", "Search query (required)")
	platforms := flag.String("platforms", "instagram,facebook", "Comma-separated platforms")
	maxImages := flag.Int("max", 10, "Maximum number of results")
	minEngagement := flag.Float64("min-engagement", 0, "Minimum engagement score")
	timeout := flag.Duration("timeout", 2*time.Minute, "Overall timeout")
	pretty := flag.Bool("pretty", false, "Pretty print JSON output")
	flag.Parse()

	if *query == "" {
		fmt.Fprintln(os.Stderr, "Error: -query flag is required")
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	fc := viral.DefaultConfig()
	fc.ContentAPIURL = cfg.Providers.ContentAPIURL
	fc.ContentAPIToken = cfg.Providers.ContentAPIToken
	fc.SearchAPIURL = cfg.Providers.SearchAPIURL
	fc.SearchAPIKey = cfg.Providers.SearchAPIKey
	fc.OpenAIBaseURL = cfg.Providers.OpenAIBaseURL
	fc.OpenAIKey = cfg.Providers.OpenAIKey
	fc.OpenAIModel = cfg.Providers.OpenAIModel

	finder := viral.New(fc)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	req := models.SearchRequest{
		Query:         *query,
		MaxImages:     *maxImages,
		MinEngagement: *minEngagement,
		Platforms:     strings.Split(*platforms, ","),
	}

	images, err := finder.Search(ctx, uuid.New().String(), req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error running search: %v\n", err)
		os.Exit(1)
	}

	output := struct {
		Query   string              `json:"query"`
		Images  []models.ViralImage `json:"images"`
		Summary models.Summary      `json:"summary"`
	}{
		Query:   *query,
		Images:  images,
		Summary: viral.BuildSummary(images),
	}

	var jsonData []byte
	if *pretty {
		jsonData, err = json.MarshalIndent(output, "", "  ")
	} else {
		jsonData, err = json.Marshal(output)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(string(jsonData))
}
