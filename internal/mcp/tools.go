package mcp

import (
	"context"
	"errors"
	"math"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/shelfd/shelf/internal/model"
	"github.com/shelfd/shelf/internal/store"
)

// registerTools registers all catalog MCP tools on the given server.
func (s *MCPServer) registerTools(srv *server.MCPServer) {

	// ----- Read tools -----

	srv.AddTool(
		mcp.NewTool("shelf_list_products",
			mcp.WithDescription(
				"List all products in the catalog in insertion order. Returns each "+
					"product's id, name, description, price, and image URL. Use this "+
					"first to discover what is on the shelf.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
		),
		s.handleListProducts,
	)

	srv.AddTool(
		mcp.NewTool("shelf_get_product",
			mcp.WithDescription(
				"Get a single product by its numeric id, including all fields and "+
					"timestamps.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithNumber("id",
				mcp.Required(),
				mcp.Description("Numeric id of the product"),
			),
		),
		s.handleGetProduct,
	)

	srv.AddTool(
		mcp.NewTool("shelf_catalog_stats",
			mcp.WithDescription(
				"Get summary statistics for the catalog: total product count.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
		),
		s.handleCatalogStats,
	)

	// ----- Mutation tools -----

	srv.AddTool(
		mcp.NewTool("shelf_create_product",
			mcp.WithDescription(
				"Create a new product in the catalog. Requires a name, description, "+
					"and a non-negative price. Images can only be attached through the "+
					"HTTP API or the admin console.",
			),
			mcp.WithToolAnnotation(mutatingAnnotation()),
			mcp.WithString("name",
				mcp.Required(),
				mcp.Description("Product name"),
			),
			mcp.WithString("description",
				mcp.Required(),
				mcp.Description("Product description"),
			),
			mcp.WithNumber("price",
				mcp.Required(),
				mcp.Description("Product price as a decimal number, e.g. 9.99"),
			),
		),
		s.handleCreateProduct,
	)

	srv.AddTool(
		mcp.NewTool("shelf_update_product",
			mcp.WithDescription(
				"Update an existing product. Only the provided fields change; "+
					"omitted fields keep their current values.",
			),
			mcp.WithToolAnnotation(mutatingAnnotation()),
			mcp.WithNumber("id",
				mcp.Required(),
				mcp.Description("Numeric id of the product to update"),
			),
			mcp.WithString("name",
				mcp.Description("New product name"),
			),
			mcp.WithString("description",
				mcp.Description("New product description"),
			),
			mcp.WithNumber("price",
				mcp.Description("New product price as a decimal number"),
			),
		),
		s.handleUpdateProduct,
	)

	srv.AddTool(
		mcp.NewTool("shelf_delete_product",
			mcp.WithDescription(
				"Delete a product from the catalog by its numeric id. The product's "+
					"stored image file, if any, is removed as well.",
			),
			mcp.WithToolAnnotation(mutatingAnnotation()),
			mcp.WithNumber("id",
				mcp.Required(),
				mcp.Description("Numeric id of the product to delete"),
			),
		),
		s.handleDeleteProduct,
	)
}

// =========================================================================
// Tool handlers
// =========================================================================

func (s *MCPServer) handleListProducts(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	products, err := s.store.ListProducts(ctx)
	if err != nil {
		return toolError("Failed to list products: %v", err)
	}

	return successJSON(map[string]interface{}{
		"products": products,
		"count":    len(products),
	})
}

func (s *MCPServer) handleGetProduct(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	id, err := requireID(request)
	if err != nil {
		return toolError("%v", err)
	}

	product, err := s.store.GetProduct(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return toolError("Product %d not found. Use shelf_list_products to see what exists.", id)
		}
		return toolError("Failed to get product %d: %v", id, err)
	}

	return successJSON(product)
}

func (s *MCPServer) handleCatalogStats(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	count, err := s.store.CountProducts(ctx)
	if err != nil {
		return toolError("Failed to count products: %v", err)
	}

	return successJSON(map[string]interface{}{
		"product_count": count,
	})
}

func (s *MCPServer) handleCreateProduct(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	name, err := requireString(request, "name")
	if err != nil {
		return toolError("%v", err)
	}
	description, err := requireString(request, "description")
	if err != nil {
		return toolError("%v", err)
	}
	price, err := requireFloat(request, "price")
	if err != nil {
		return toolError("%v", err)
	}
	if err := validPrice(price); err != nil {
		return toolError("%v", err)
	}

	product := &model.Product{
		Name:        name,
		Description: description,
		Price:       price,
	}
	if err := s.store.CreateProduct(ctx, product); err != nil {
		return toolError("Failed to create product: %v", err)
	}

	return successJSON(product)
}

func (s *MCPServer) handleUpdateProduct(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	id, err := requireID(request)
	if err != nil {
		return toolError("%v", err)
	}

	var upd model.ProductUpdate
	if name := optionalString(request, "name"); name != "" {
		upd.Name = &name
	}
	if description := optionalString(request, "description"); description != "" {
		upd.Description = &description
	}
	if price, ok := optionalFloat(request, "price"); ok {
		if err := validPrice(price); err != nil {
			return toolError("%v", err)
		}
		upd.Price = &price
	}

	if upd.Name == nil && upd.Description == nil && upd.Price == nil {
		return toolError("No fields to update. Provide at least one of name, description, or price.")
	}

	product, _, err := s.store.UpdateProduct(ctx, id, upd)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return toolError("Product %d not found. Use shelf_list_products to see what exists.", id)
		}
		return toolError("Failed to update product %d: %v", id, err)
	}

	return successJSON(product)
}

func (s *MCPServer) handleDeleteProduct(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	id, err := requireID(request)
	if err != nil {
		return toolError("%v", err)
	}

	image, err := s.store.DeleteProduct(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return toolError("Product %d not found. Use shelf_list_products to see what exists.", id)
		}
		return toolError("Failed to delete product %d: %v", id, err)
	}

	// Image cleanup is best effort; the catalog row is already gone.
	if image != nil && s.uploads != nil {
		if err := s.uploads.Discard(*image); err != nil {
			s.logger.Warn("discard product image", "image", *image, "error", err)
		}
	}

	return successJSON(map[string]interface{}{
		"deleted": id,
	})
}

// validPrice rejects prices the catalog cannot represent.
func validPrice(price float64) error {
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return errors.New("price must be a finite number")
	}
	if price < 0 {
		return errors.New("price must not be negative")
	}
	return nil
}
