package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	baseURL string
	timeout time.Duration
	client  string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "waterledger-cli",
		Short: "Water ledger CLI tool",
		Long:  `A command line interface for the water billing ledger API.`,
	}

	rootCmd.PersistentFlags().StringVar(&baseURL, "url", "http://localhost:8080", "Base URL of the water ledger API")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")
	rootCmd.PersistentFlags().StringVar(&client, "client", "", "Client (HOA) identifier")

	rootCmd.AddCommand(payCmd())
	rootCmd.AddCommand(reverseCmd())
	rootCmd.AddCommand(outstandingCmd())
	rootCmd.AddCommand(viewCmd())
	rootCmd.AddCommand(rebuildCmd())
	rootCmd.AddCommand(creditCmd())

	return rootCmd
}

func payCmd() *cobra.Command {
	var (
		unitID      string
		fiscalYear  string
		amountCents int64
		creditCents int64
	)

	cmd := &cobra.Command{
		Use:   "pay",
		Short: "Record a payment for a unit",
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]any{
				"unit_id":          unitID,
				"fiscal_year":      fiscalYear,
				"payment_cents":    amountCents,
				"use_credit_cents": creditCents,
			}
			return doRequest(http.MethodPost, fmt.Sprintf("/api/v1/clients/%s/payments", client), body)
		},
	}

	cmd.Flags().StringVar(&unitID, "unit", "", "Unit identifier")
	cmd.Flags().StringVar(&fiscalYear, "year", "", "Fiscal year, e.g. 2025")
	cmd.Flags().Int64Var(&amountCents, "amount", 0, "Payment amount in cents")
	cmd.Flags().Int64Var(&creditCents, "use-credit", 0, "Credit to apply in cents")

	return cmd
}

func reverseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reverse [transaction-id]",
		Short: "Reverse a recorded payment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return doRequest(http.MethodDelete, fmt.Sprintf("/api/v1/clients/%s/payments/%s", client, args[0]), nil)
		},
	}

	return cmd
}

func outstandingCmd() *cobra.Command {
	var unitID string

	cmd := &cobra.Command{
		Use:   "outstanding",
		Short: "List a unit's unpaid periods, oldest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return doRequest(http.MethodGet, fmt.Sprintf("/api/v1/clients/%s/units/%s/outstanding", client, unitID), nil)
		},
	}

	cmd.Flags().StringVar(&unitID, "unit", "", "Unit identifier")

	return cmd
}

func viewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view [fiscal-year]",
		Short: "Show the aggregated fiscal-year view",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return doRequest(http.MethodGet, fmt.Sprintf("/api/v1/clients/%s/aggregation/%s", client, args[0]), nil)
		},
	}

	return cmd
}

func rebuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rebuild [fiscal-year]",
		Short: "Rebuild the aggregated view from the bills table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return doRequest(http.MethodPost, fmt.Sprintf("/api/v1/clients/%s/aggregation/%s/rebuild", client, args[0]), nil)
		},
	}

	return cmd
}

func creditCmd() *cobra.Command {
	var (
		unitID     string
		fiscalYear string
	)

	cmd := &cobra.Command{
		Use:   "credit",
		Short: "Show a unit's prepaid credit balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			return doRequest(http.MethodGet, fmt.Sprintf("/api/v1/clients/%s/units/%s/credit/%s", client, unitID, fiscalYear), nil)
		},
	}

	cmd.Flags().StringVar(&unitID, "unit", "", "Unit identifier")
	cmd.Flags().StringVar(&fiscalYear, "year", "", "Fiscal year, e.g. 2025")

	return cmd
}

func doRequest(method, path string, body any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, baseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	httpClient := &http.Client{Timeout: timeout}
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 400 {
		return fmt.Errorf("request failed (status %d): %s", resp.StatusCode, string(data))
	}

	var pretty any
	if err := json.Unmarshal(data, &pretty); err != nil {
		fmt.Println(string(data))
		return nil
	}
	printJSON(pretty)

	return nil
}

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("failed to render response: %v\n", err)
		return
	}
	fmt.Println(string(data))
}
