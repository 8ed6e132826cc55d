package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/memoryd/internal/ledger"
	"github.com/fyrsmithlabs/memoryd/internal/memory"
	"github.com/fyrsmithlabs/memoryd/internal/tenantstore"
)

var (
	addTags       []string
	addImportance int
	addClient     string
	addContext    string

	searchK             int
	searchTags          []string
	searchImportanceMin int
	searchImportanceMax int
	searchClient        string
	searchFrom          string
	searchTo            string
)

func init() {
	addCmd.Flags().StringSliceVar(&addTags, "tags", nil, "tags for the memory")
	addCmd.Flags().IntVar(&addImportance, "importance", 0, "importance from 1 to 10")
	addCmd.Flags().StringVar(&addClient, "client", "", "submitting client name")
	addCmd.Flags().StringVar(&addContext, "context", "", "context the memory came from")

	searchCmd.Flags().IntVarP(&searchK, "limit", "k", 10, "maximum number of results")
	searchCmd.Flags().StringSliceVar(&searchTags, "tags", nil, "require at least one of these tags")
	searchCmd.Flags().IntVar(&searchImportanceMin, "importance-min", 0, "minimum importance")
	searchCmd.Flags().IntVar(&searchImportanceMax, "importance-max", 0, "maximum importance")
	searchCmd.Flags().StringVar(&searchClient, "client", "", "client substring filter")
	searchCmd.Flags().StringVar(&searchFrom, "from", "", "earliest event time (RFC 3339)")
	searchCmd.Flags().StringVar(&searchTo, "to", "", "latest event time (RFC 3339)")
}

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Deploy a new tenant store",
	Long: `Deploy a new tenant store on the ledger and print its handle.

The deploying account must hold funds. In development a zero-balance
account is auto-funded when the dev faucet is enabled.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, false)
		if err != nil {
			return err
		}
		defer a.close(ctx)

		shared, err := ledger.GetOrInit(ctx, ledger.Config{
			RPCURLs:   a.cfg.Ledger.RPCURLs,
			Address:   a.cfg.Ledger.Address,
			DevFaucet: a.cfg.Ledger.DevFaucet,
		})
		if err != nil {
			return fmt.Errorf("binding ledger: %w", err)
		}

		dep, err := tenantstore.DeployNew(ctx, shared, a.cfg.IsProduction(), a.logger)
		if err != nil {
			return err
		}

		fmt.Printf("handle: %s\nowner:  %s\n", dep.Handle, dep.Owner)
		return nil
	},
}

var addCmd = &cobra.Command{
	Use:   "add [content]",
	Short: "Store a new memory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, true)
		if err != nil {
			return err
		}
		defer a.close(ctx)

		if gate := a.registry.Quota(); gate != nil {
			if userID == "" {
				return fmt.Errorf("--user is required when quota enforcement is configured")
			}
			if err := gate.Check(ctx, userID); err != nil {
				return err
			}
		}

		mem, err := a.registry.Memory().CreateMemory(ctx, args[0], memory.Metadata{
			Context:    addContext,
			Importance: addImportance,
			Tags:       addTags,
			Client:     addClient,
			SessionID:  uuid.NewString(),
			Timestamp:  time.Now().UTC().Format(time.RFC3339),
		})
		if err != nil {
			return err
		}

		if gate := a.registry.Quota(); gate != nil {
			gate.RecordUsage(ctx, userID)
		}

		fmt.Printf("stored memory %d\n", mem.ID)
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search memories by similarity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, true)
		if err != nil {
			return err
		}
		defer a.close(ctx)

		filters := &memory.SearchFilters{
			Tags:          searchTags,
			ImportanceMin: searchImportanceMin,
			ImportanceMax: searchImportanceMax,
			Client:        searchClient,
		}
		if searchFrom != "" {
			from, err := time.Parse(time.RFC3339, searchFrom)
			if err != nil {
				return fmt.Errorf("invalid --from: %w", err)
			}
			filters.DateFrom = from
		}
		if searchTo != "" {
			to, err := time.Parse(time.RFC3339, searchTo)
			if err != nil {
				return fmt.Errorf("invalid --to: %w", err)
			}
			filters.DateTo = to
		}

		results, err := a.registry.Memory().SearchMemories(ctx, args[0], searchK, filters)
		if err != nil {
			return err
		}

		if len(results) == 0 {
			fmt.Println("no memories found")
			return nil
		}
		for _, m := range results {
			fmt.Printf("[%d] d=%.4f %s\n", m.ID, m.Distance, m.Content)
		}
		return nil
	},
}

var getCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Fetch one memory by id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid id %q: %w", args[0], err)
		}

		ctx := cmd.Context()
		a, err := newApp(ctx, true)
		if err != nil {
			return err
		}
		defer a.close(ctx)

		mem, found, err := a.registry.Memory().GetMemory(ctx, id)
		if err != nil {
			return err
		}
		if !found {
			fmt.Printf("memory %d not found\n", id)
			return nil
		}

		fmt.Printf("id:      %d\ncontent: %s\n", mem.ID, mem.Content)
		if len(mem.Metadata.Tags) > 0 {
			fmt.Printf("tags:    %v\n", mem.Metadata.Tags)
		}
		if mem.Metadata.Importance != 0 {
			fmt.Printf("importance: %d\n", mem.Metadata.Importance)
		}
		if mem.Metadata.Client != "" {
			fmt.Printf("client:  %s\n", mem.Metadata.Client)
		}
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show tenant memory statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, true)
		if err != nil {
			return err
		}
		defer a.close(ctx)

		stats := a.registry.Memory().Stats(ctx)
		fmt.Printf("memories:     %d\nengine ready: %t\nstore ready:  %t\n",
			stats.TotalMemories, stats.EngineReady, stats.StoreReady)
		return nil
	},
}
