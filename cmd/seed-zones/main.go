package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/okaziba/storefront/internal/config"
	"github.com/okaziba/storefront/internal/domain"
	"github.com/okaziba/storefront/internal/repository/postgres"
)

// seedZone mirrors the three-level tree in the seed file
type seedZone struct {
	Name     string     `json:"name"`
	Children []seedZone `json:"children,omitempty"`
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run cmd/seed-zones/main.go <zones.json>")
		fmt.Println("The file holds a zone -> sub-zone -> area tree, e.g.")
		fmt.Println(`  [{"name": "Lagos", "children": [{"name": "Ikeja", "children": [{"name": "Allen Avenue"}]}]}]`)
		os.Exit(1)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	raw, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read seed file: %v\n", err)
		os.Exit(1)
	}

	var roots []seedZone
	if err := json.Unmarshal(raw, &roots); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse seed file: %v\n", err)
		os.Exit(1)
	}

	// Connect to database
	db, err := postgres.NewConnection(cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	repos := postgres.NewRepositories(db, logger)

	ctx := context.Background()
	total := 0
	for i, root := range roots {
		n, err := insertTree(ctx, repos.Zone.Create, root, nil, i)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to seed zone %q: %v\n", root.Name, err)
			os.Exit(1)
		}
		total += n
	}

	fmt.Printf("Seeded %d zones\n", total)
}

func insertTree(ctx context.Context, create func(context.Context, *domain.LogisticsZone) error, node seedZone, parentID *string, position int) (int, error) {
	zone := &domain.LogisticsZone{
		ParentID: parentID,
		Name:     node.Name,
		Position: position,
	}
	if err := create(ctx, zone); err != nil {
		return 0, err
	}

	count := 1
	for i, child := range node.Children {
		n, err := insertTree(ctx, create, child, &zone.ID, i)
		if err != nil {
			return count, err
		}
		count += n
	}

	return count, nil
}
