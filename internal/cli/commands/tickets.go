package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

type ticketSummary struct {
	ID              string    `json:"id"`
	ReferenceNumber string    `json:"reference_number"`
	Subject         string    `json:"subject"`
	Status          string    `json:"status"`
	Priority        string    `json:"priority"`
	CreatedAt       time.Time `json:"created_at"`
}

type ticketListing struct {
	Tickets []ticketSummary `json:"tickets"`
	Total   int64           `json:"total"`
}

type ticketDetail struct {
	ticketSummary
	Messages []struct {
		Content   string    `json:"content"`
		Type      string    `json:"type"`
		CreatedAt time.Time `json:"created_at"`
		User      struct {
			FirstName string `json:"first_name"`
			LastName  string `json:"last_name"`
		} `json:"user"`
	} `json:"messages"`
}

// NewTicketsCmd creates the tickets command tree
func NewTicketsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tickets",
		Short: "Manage support tickets",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTicketsList(cmd.Context())
		},
	}

	cmd.AddCommand(newTicketsCreateCmd())
	cmd.AddCommand(newTicketsShowCmd())
	cmd.AddCommand(newTicketsReplyCmd())

	return cmd
}

func newTicketsCreateCmd() *cobra.Command {
	var subject, description, priority, ticketType string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Open a new support ticket",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTicketsCreate(cmd.Context(), subject, description, priority, ticketType)
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "Ticket subject")
	cmd.Flags().StringVar(&description, "message", "", "Problem description")
	cmd.Flags().StringVar(&priority, "priority", "", "Priority: low, medium, high, urgent")
	cmd.Flags().StringVar(&ticketType, "type", "", "Type: technical, billing, general, feature_request, bug_report")
	cmd.MarkFlagRequired("subject")
	cmd.MarkFlagRequired("message")

	return cmd
}

func newTicketsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <reference>",
		Short: "Show a ticket and its conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTicketsShow(cmd.Context(), args[0])
		},
	}
}

func newTicketsReplyCmd() *cobra.Command {
	var message string

	cmd := &cobra.Command{
		Use:   "reply <ticket-id>",
		Short: "Reply to a ticket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTicketsReply(cmd.Context(), args[0], message)
		},
	}

	cmd.Flags().StringVar(&message, "message", "", "Reply text")
	cmd.MarkFlagRequired("message")

	return cmd
}

func runTicketsList(ctx context.Context, opts ...Option) error {
	_, apiClient, err := newSession(opts...)
	if err != nil {
		return err
	}

	var listing ticketListing
	if err := apiClient.Get(ctx, "/api/tickets", &listing); err != nil {
		return err
	}

	if len(listing.Tickets) == 0 {
		fmt.Println("No tickets found.")
		fmt.Println("\nOpen one with: tradekit tickets create --subject ... --message ...")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "REFERENCE\tSUBJECT\tSTATUS\tPRIORITY\tCREATED")
	fmt.Fprintln(w, "─────────\t───────\t──────\t────────\t───────")

	for _, ticket := range listing.Tickets {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			ticket.ReferenceNumber,
			ticket.Subject,
			ticket.Status,
			ticket.Priority,
			ticket.CreatedAt.Format("2006-01-02"),
		)
	}

	w.Flush()
	return nil
}

func runTicketsCreate(ctx context.Context, subject, description, priority, ticketType string, opts ...Option) error {
	_, apiClient, err := newSession(opts...)
	if err != nil {
		return err
	}

	var ticket ticketSummary
	err = apiClient.Post(ctx, "/api/tickets", map[string]string{
		"subject":     subject,
		"description": description,
		"priority":    priority,
		"type":        ticketType,
	}, &ticket)
	if err != nil {
		return fmt.Errorf("failed to create ticket: %w", err)
	}

	fmt.Println("✓ Ticket created!")
	fmt.Printf("  Reference: %s\n", ticket.ReferenceNumber)
	return nil
}

func runTicketsShow(ctx context.Context, reference string, opts ...Option) error {
	_, apiClient, err := newSession(opts...)
	if err != nil {
		return err
	}

	var ticket ticketDetail
	if err := apiClient.Get(ctx, "/api/tickets/reference/"+reference, &ticket); err != nil {
		return err
	}

	fmt.Printf("%s  %s\n", ticket.ReferenceNumber, ticket.Subject)
	fmt.Printf("Status: %s  Priority: %s  Created: %s\n",
		ticket.Status, ticket.Priority, ticket.CreatedAt.Format("2006-01-02 15:04"))

	for _, msg := range ticket.Messages {
		fmt.Printf("\n[%s] %s %s (%s):\n%s\n",
			msg.CreatedAt.Format("2006-01-02 15:04"),
			msg.User.FirstName, msg.User.LastName,
			msg.Type,
			msg.Content,
		)
	}

	return nil
}

func runTicketsReply(ctx context.Context, ticketID, message string, opts ...Option) error {
	_, apiClient, err := newSession(opts...)
	if err != nil {
		return err
	}

	err = apiClient.Post(ctx, "/api/tickets/"+ticketID+"/messages", map[string]string{
		"content": message,
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to send reply: %w", err)
	}

	fmt.Println("✓ Reply sent.")
	return nil
}
