package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/tekpress/cli/internal/bus"
	"github.com/tekpress/cli/internal/coordinator"
	"github.com/tekpress/cli/internal/popup"
	"github.com/tekpress/cli/internal/prodigi"
	"github.com/tekpress/cli/pkg/util"
)

// OrdersCmd handles print order operations through the message bus, the same
// path the page surfaces use.
type OrdersCmd struct {
	dispatcher bus.Dispatcher
}

type OrdersListInput struct {
	Output string
}

type OrdersCreateInput struct {
	ImageURL string
	Product  string
	Size     string
}

func (c OrdersCmd) List(ctx context.Context, in OrdersListInput) error {
	if in.Output != "" && in.Output != "json" {
		return fmt.Errorf("unsupported --output value: use 'json'")
	}

	resp, err := c.dispatcher.Send(ctx, bus.Request{Action: bus.ActionGetPrintOrders})
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("failed to list orders: %s", resp.Error)
	}
	raw, _ := resp.Data.(json.RawMessage)

	if in.Output == "json" {
		return util.PrintPrettyJSON(raw)
	}

	rows := gjson.ParseBytes(raw).Array()
	if len(rows) == 0 {
		pterm.Info.Println("No print orders found")
		return nil
	}

	tableData := pterm.TableData{{"Image", "Product", "Ordered", "Status"}}
	for _, row := range rows {
		tableData = append(tableData, []string{
			util.Truncate(row.Get("image_url").String(), 60),
			popup.FormatProductType(row.Get("product_type").String()),
			popup.FormatDate(row.Get("created_at").String()),
			util.OrDash(row.Get("status").String()),
		})
	}
	PrintTableNoPad(tableData, true)
	return nil
}

func (c OrdersCmd) Create(ctx context.Context, in OrdersCreateInput) error {
	if in.ImageURL == "" {
		return fmt.Errorf("--image-url is required")
	}

	resp, err := c.dispatcher.Send(ctx, bus.Request{Action: bus.ActionGetSession})
	if err != nil {
		return err
	}
	info, _ := resp.Data.(coordinator.SessionInfo)
	if !resp.Success || !info.IsAuthenticated {
		return fmt.Errorf("not signed in: run 'tekpress auth login' first")
	}
	userID := gjson.GetBytes(info.User, "id").String()

	productType := fmt.Sprintf("%s-%s", in.Product, in.Size)
	resp, err = c.dispatcher.Send(ctx, bus.Request{
		Action:      bus.ActionSavePrintOrder,
		UserID:      userID,
		ImageURL:    in.ImageURL,
		ProductType: productType,
	})
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("failed to save order: %s", resp.Error)
	}

	pterm.Success.Printf("Print order saved: %s (%s)\n",
		popup.FormatProductType(productType), prodigi.ProductSku(in.Product, in.Size))
	return nil
}

// --- Cobra wiring ---

var ordersCmd = &cobra.Command{
	Use:   "orders",
	Short: "Manage your print orders",
}

var ordersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your print orders",
	Args:  cobra.NoArgs,
	RunE:  runOrdersList,
}

var ordersCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Save a print order for an image",
	Args:  cobra.NoArgs,
	RunE:  runOrdersCreate,
}

func init() {
	ordersListCmd.Flags().StringP("output", "o", "", "Output format: json for raw rows")

	ordersCreateCmd.Flags().String("image-url", "", "Image to print (required)")
	ordersCreateCmd.Flags().String("product", "poster", "Product type: poster, canvas, framed, metal")
	ordersCreateCmd.Flags().String("size", "8x10", "Print size: 8x10, 11x14, 16x20, 24x36")
	_ = ordersCreateCmd.MarkFlagRequired("image-url")

	ordersCmd.AddCommand(ordersListCmd)
	ordersCmd.AddCommand(ordersCreateCmd)
	rootCmd.AddCommand(ordersCmd)
}

func runOrdersList(cmd *cobra.Command, args []string) error {
	dispatcher, cleanup := newDispatcher()
	defer cleanup()
	output, _ := cmd.Flags().GetString("output")

	c := OrdersCmd{dispatcher: dispatcher}
	return c.List(cmd.Context(), OrdersListInput{Output: output})
}

func runOrdersCreate(cmd *cobra.Command, args []string) error {
	dispatcher, cleanup := newDispatcher()
	defer cleanup()
	imageURL, _ := cmd.Flags().GetString("image-url")
	product, _ := cmd.Flags().GetString("product")
	size, _ := cmd.Flags().GetString("size")

	c := OrdersCmd{dispatcher: dispatcher}
	return c.Create(cmd.Context(), OrdersCreateInput{
		ImageURL: imageURL,
		Product:  product,
		Size:     size,
	})
}
