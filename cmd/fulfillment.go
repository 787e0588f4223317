package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/tekpress/cli/internal/prodigi"
	"github.com/tekpress/cli/pkg/util"
)

// FulfillmentService defines the subset of the Prodigi client that we use.
type FulfillmentService interface {
	GetProducts(ctx context.Context, top, skip int) ([]prodigi.Product, error)
	GetProduct(ctx context.Context, sku string) (*prodigi.Product, error)
	CreateOrder(ctx context.Context, order prodigi.Order) (*prodigi.Order, error)
	GetOrder(ctx context.Context, id string) (*prodigi.Order, error)
	CancelOrder(ctx context.Context, id string) (*prodigi.Order, error)
	CreateQuote(ctx context.Context, order prodigi.Order) ([]prodigi.Quote, error)
}

// FulfillmentCmd handles print fulfillment operations independent of cobra.
type FulfillmentCmd struct {
	svc FulfillmentService
}

type FulfillmentCreateInput struct {
	ImageURL   string
	Product    string
	Size       string
	Copies     int
	Name       string
	Line1      string
	City       string
	PostalCode string
	Country    string
}

type FulfillmentQuoteInput struct {
	Product string
	Size    string
	Copies  int
	Country string
}

func (c FulfillmentCmd) Product(ctx context.Context, sku string) error {
	product, err := c.svc.GetProduct(ctx, sku)
	if err != nil {
		return err
	}

	tableData := pterm.TableData{
		{"Property", "Value"},
		{"SKU", product.SKU},
		{"Description", util.OrDash(product.Description)},
	}
	if product.ProductDimensions.Width > 0 {
		tableData = append(tableData, []string{"Dimensions", fmt.Sprintf("%g x %g %s",
			product.ProductDimensions.Width, product.ProductDimensions.Height, product.ProductDimensions.Units)})
	}
	for name, values := range product.Attributes {
		tableData = append(tableData, []string{name, util.JoinOrDash(values...)})
	}

	PrintTableNoPad(tableData, true)
	return nil
}

func (c FulfillmentCmd) Products(ctx context.Context, limit int) error {
	products, err := c.svc.GetProducts(ctx, limit, 0)
	if err != nil {
		return err
	}
	if len(products) == 0 {
		pterm.Info.Println("No products found")
		return nil
	}

	tableData := pterm.TableData{{"SKU", "Description"}}
	for _, p := range products {
		tableData = append(tableData, []string{p.SKU, util.Truncate(util.OrDash(p.Description), 60)})
	}
	PrintTableNoPad(tableData, true)
	return nil
}

func (c FulfillmentCmd) Skus() error {
	tableData := pterm.TableData{{"Product", "Size", "SKU"}}
	for _, product := range prodigi.ProductTypes() {
		for _, size := range prodigi.Sizes() {
			tableData = append(tableData, []string{product, size, prodigi.ProductSku(product, size)})
		}
	}
	PrintTableNoPad(tableData, true)
	return nil
}

func (c FulfillmentCmd) Quote(ctx context.Context, in FulfillmentQuoteInput) error {
	quotes, err := c.svc.CreateQuote(ctx, prodigi.Order{
		ShippingMethod: "Budget",
		Recipient:      prodigi.Recipient{Address: prodigi.Address{CountryCode: in.Country}},
		Items: []prodigi.Item{{
			SKU:    prodigi.ProductSku(in.Product, in.Size),
			Copies: in.Copies,
		}},
	})
	if err != nil {
		return err
	}
	if len(quotes) == 0 {
		pterm.Info.Println("No quotes returned")
		return nil
	}

	tableData := pterm.TableData{{"Shipment", "Items", "Shipping"}}
	for _, q := range quotes {
		tableData = append(tableData, []string{
			q.ShipmentMethod,
			fmt.Sprintf("%s %s", q.CostSummary.Items.Amount, q.CostSummary.Items.Currency),
			fmt.Sprintf("%s %s", q.CostSummary.Shipping.Amount, q.CostSummary.Shipping.Currency),
		})
	}
	PrintTableNoPad(tableData, true)
	return nil
}

func (c FulfillmentCmd) Create(ctx context.Context, in FulfillmentCreateInput) error {
	if in.ImageURL == "" {
		return fmt.Errorf("--image-url is required")
	}

	sku := prodigi.ProductSku(in.Product, in.Size)
	pterm.Info.Printf("Submitting %s order for fulfillment...\n", sku)

	order, err := c.svc.CreateOrder(ctx, prodigi.Order{
		ShippingMethod: "Budget",
		Recipient: prodigi.Recipient{
			Name: in.Name,
			Address: prodigi.Address{
				Line1:           in.Line1,
				TownOrCity:      in.City,
				PostalOrZipCode: in.PostalCode,
				CountryCode:     in.Country,
			},
		},
		Items: []prodigi.Item{{
			SKU:    sku,
			Copies: in.Copies,
			Sizing: "fillPrintArea",
			Assets: []prodigi.Asset{{PrintArea: "default", URL: in.ImageURL}},
		}},
	})
	if err != nil {
		return err
	}

	pterm.Success.Printf("Order submitted: %s\n", order.ID)
	printFulfillmentOrder(order)
	return nil
}

func (c FulfillmentCmd) Get(ctx context.Context, id string) error {
	order, err := c.svc.GetOrder(ctx, id)
	if err != nil {
		return err
	}
	printFulfillmentOrder(order)
	return nil
}

func (c FulfillmentCmd) Cancel(ctx context.Context, id string) error {
	order, err := c.svc.CancelOrder(ctx, id)
	if err != nil {
		return err
	}
	if order.Status != nil && strings.EqualFold(order.Status.Stage, "cancelled") {
		pterm.Success.Printf("Order cancelled: %s\n", id)
	} else {
		pterm.Warning.Printf("Cancellation requested for %s, check its status\n", id)
	}
	return nil
}

func printFulfillmentOrder(order *prodigi.Order) {
	tableData := pterm.TableData{
		{"Property", "Value"},
		{"ID", order.ID},
	}
	if order.Status != nil {
		tableData = append(tableData, []string{"Stage", order.Status.Stage})
	}
	if !order.Created.IsZero() {
		tableData = append(tableData, []string{"Created", order.Created.Local().Format("Jan 2, 2006 15:04")})
	}
	for _, item := range order.Items {
		tableData = append(tableData, []string{"Item", fmt.Sprintf("%s x%d", item.SKU, item.Copies)})
	}
	PrintTableNoPad(tableData, true)
}

// --- Cobra wiring ---

var productsCmd = &cobra.Command{
	Use:   "products",
	Short: "Look up printable products",
}

var productsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List printable products from the catalog",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		c := FulfillmentCmd{svc: newProdigiClient()}
		return c.Products(cmd.Context(), limit)
	},
}

var productsSkusCmd = &cobra.Command{
	Use:   "skus",
	Short: "Show the product and size to SKU mapping",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return FulfillmentCmd{}.Skus()
	},
}

var productsGetCmd = &cobra.Command{
	Use:   "get <sku>",
	Short: "Fetch a product's catalog details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := FulfillmentCmd{svc: newProdigiClient()}
		return c.Product(cmd.Context(), args[0])
	},
}

var quotesCmd = &cobra.Command{
	Use:   "quote",
	Short: "Price a print order without submitting it",
	Args:  cobra.NoArgs,
	RunE:  runQuote,
}

var fulfillmentCmd = &cobra.Command{
	Use:   "fulfillment",
	Short: "Submit and track orders with the print lab",
}

var fulfillmentCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Submit a print order for fulfillment",
	Args:  cobra.NoArgs,
	RunE:  runFulfillmentCreate,
}

var fulfillmentGetCmd = &cobra.Command{
	Use:   "get <order-id>",
	Short: "Fetch a fulfillment order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := FulfillmentCmd{svc: newProdigiClient()}
		return c.Get(cmd.Context(), args[0])
	},
}

var fulfillmentCancelCmd = &cobra.Command{
	Use:   "cancel <order-id>",
	Short: "Cancel a fulfillment order that has not printed yet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := FulfillmentCmd{svc: newProdigiClient()}
		return c.Cancel(cmd.Context(), args[0])
	},
}

func init() {
	quotesCmd.Flags().String("product", "poster", "Product type")
	quotesCmd.Flags().String("size", "8x10", "Print size")
	quotesCmd.Flags().Int("copies", 1, "Number of copies")
	quotesCmd.Flags().String("country", "US", "Destination country code")

	fulfillmentCreateCmd.Flags().String("image-url", "", "Image to print (required)")
	fulfillmentCreateCmd.Flags().String("product", "poster", "Product type")
	fulfillmentCreateCmd.Flags().String("size", "8x10", "Print size")
	fulfillmentCreateCmd.Flags().Int("copies", 1, "Number of copies")
	fulfillmentCreateCmd.Flags().String("name", "", "Recipient name")
	fulfillmentCreateCmd.Flags().String("line1", "", "Address line 1")
	fulfillmentCreateCmd.Flags().String("city", "", "Town or city")
	fulfillmentCreateCmd.Flags().String("postal-code", "", "Postal or zip code")
	fulfillmentCreateCmd.Flags().String("country", "US", "Country code")
	_ = fulfillmentCreateCmd.MarkFlagRequired("image-url")

	productsListCmd.Flags().Int("limit", 20, "Maximum number of products to return")

	productsCmd.AddCommand(productsListCmd)
	productsCmd.AddCommand(productsSkusCmd)
	productsCmd.AddCommand(productsGetCmd)
	fulfillmentCmd.AddCommand(fulfillmentCreateCmd)
	fulfillmentCmd.AddCommand(fulfillmentGetCmd)
	fulfillmentCmd.AddCommand(fulfillmentCancelCmd)

	rootCmd.AddCommand(productsCmd)
	rootCmd.AddCommand(quotesCmd)
	rootCmd.AddCommand(fulfillmentCmd)
}

func runQuote(cmd *cobra.Command, args []string) error {
	product, _ := cmd.Flags().GetString("product")
	size, _ := cmd.Flags().GetString("size")
	copies, _ := cmd.Flags().GetInt("copies")
	country, _ := cmd.Flags().GetString("country")

	c := FulfillmentCmd{svc: newProdigiClient()}
	return c.Quote(cmd.Context(), FulfillmentQuoteInput{
		Product: product,
		Size:    size,
		Copies:  copies,
		Country: country,
	})
}

func runFulfillmentCreate(cmd *cobra.Command, args []string) error {
	imageURL, _ := cmd.Flags().GetString("image-url")
	product, _ := cmd.Flags().GetString("product")
	size, _ := cmd.Flags().GetString("size")
	copies, _ := cmd.Flags().GetInt("copies")
	name, _ := cmd.Flags().GetString("name")
	line1, _ := cmd.Flags().GetString("line1")
	city, _ := cmd.Flags().GetString("city")
	postalCode, _ := cmd.Flags().GetString("postal-code")
	country, _ := cmd.Flags().GetString("country")

	c := FulfillmentCmd{svc: newProdigiClient()}
	return c.Create(cmd.Context(), FulfillmentCreateInput{
		ImageURL:   imageURL,
		Product:    product,
		Size:       size,
		Copies:     copies,
		Name:       name,
		Line1:      line1,
		City:       city,
		PostalCode: postalCode,
		Country:    country,
	})
}
