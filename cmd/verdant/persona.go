package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hrygo/verdant/store"
)

func newPersonaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "persona",
		Short: "Manage plant personas",
	}

	var upsert store.UpsertPersona
	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Create or update the persona of a plant",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := loadProfile()
			if err != nil {
				return err
			}
			ctx := context.Background()
			st, err := openStore(ctx, p)
			if err != nil {
				return err
			}
			defer st.Close()

			persona, err := st.UpsertPersona(ctx, &upsert)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "persona %d saved: %s (%s) for user %d, plant %d\n",
				persona.ID, persona.PlantName, persona.Species, persona.UserID, persona.PlantID)
			return nil
		},
	}
	f := setCmd.Flags()
	f.Int64Var(&upsert.UserID, "user", 1, "user id")
	f.Int64Var(&upsert.PlantID, "plant", 1, "plant id")
	f.StringVar(&upsert.Nickname, "nickname", "", "how the plant addresses the user")
	f.StringVar(&upsert.PlantName, "name", "", "the plant's name")
	f.StringVar(&upsert.Species, "species", "", "plant species")
	f.StringVar(&upsert.Personality, "personality", "", "short personality description")

	cmd.AddCommand(setCmd)
	return cmd
}
