package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/shelfd/shelf/internal/model"
)

// seedFile is the YAML fixture format accepted by `shelf seed`.
type seedFile struct {
	Products []seedProduct `yaml:"products"`
}

type seedProduct struct {
	Name        string  `yaml:"name"`
	Description string  `yaml:"description"`
	Price       float64 `yaml:"price"`
}

func newSeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed <file>",
		Short: "Load products from a YAML fixture file",
		Long: `Load products into the catalog from a YAML file of the form:

  products:
    - name: Mug
      description: A sturdy mug
      price: 9.99
    - name: Poster
      description: Wall poster
      price: 15.00

Existing products are left untouched; seeding only appends.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(args[0])
		},
	}

	return cmd
}

func runSeed(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read fixture file: %w", err)
	}

	var fixture seedFile
	if err := yaml.Unmarshal(data, &fixture); err != nil {
		return fmt.Errorf("parse fixture file: %w", err)
	}
	if len(fixture.Products) == 0 {
		return fmt.Errorf("fixture file %q contains no products", path)
	}

	for i, p := range fixture.Products {
		if p.Name == "" || p.Description == "" {
			return fmt.Errorf("product %d: name and description are required", i+1)
		}
		if p.Price < 0 {
			return fmt.Errorf("product %d (%s): price must not be negative", i+1, p.Name)
		}
	}

	st, err := openStore()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()
	for _, p := range fixture.Products {
		product := &model.Product{
			Name:        p.Name,
			Description: p.Description,
			Price:       p.Price,
		}
		if err := st.CreateProduct(ctx, product); err != nil {
			return fmt.Errorf("create product %q: %w", p.Name, err)
		}
		fmt.Printf("Created product %q (id %d)\n", product.Name, product.ID)
	}

	fmt.Printf("Seeded %d products.\n", len(fixture.Products))
	return nil
}
