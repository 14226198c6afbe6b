package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/bpointel/docintel/internal/domain/entity"
	"github.com/bpointel/docintel/internal/infrastructure/external/modelserving"
	"github.com/bpointel/docintel/internal/infrastructure/search/milvus"
	"github.com/bpointel/docintel/pkg/errors"
)

// referenceEntry is the input form of one reference index entry; the
// embedding is computed at load time when absent.
type referenceEntry struct {
	ID        string    `json:"id,omitempty"`
	Canonical string    `json:"canonical"`
	Type      string    `json:"type"`
	Embedding []float32 `json:"embedding,omitempty"`
}

// newReferenceCmd builds the reference index command group.  The embedding
// tier resolves probe phrases against this index; load must run before the
// tier can produce candidates.
func newReferenceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reference",
		Short: "Manage the reference entity index",
	}

	var inputPath string
	load := &cobra.Command{
		Use:   "load",
		Short: "Embed and index reference entities from a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			cfg := cliCtx.Config

			entries, err := readReferenceEntries(inputPath)
			if err != nil {
				return err
			}

			client, err := milvus.NewClient(ctx, cfg.Milvus, cliCtx.Logger)
			if err != nil {
				return err
			}
			defer client.Close()
			if err := client.EnsureCollection(ctx); err != nil {
				return err
			}

			embedder, err := modelserving.NewEmbedderClient(cfg.Tagger, cliCtx.Logger)
			if err != nil {
				return err
			}

			searcher := milvus.NewReferenceSearcher(client, embedder, cliCtx.Logger)
			if err := searcher.IndexReferenceEntities(ctx, entries); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "indexed %d reference entities\n", len(entries))
			return nil
		},
	}
	load.Flags().StringVarP(&inputPath, "input", "i", "", "JSON file of reference entities")
	_ = load.MarkFlagRequired("input")

	cmd.AddCommand(load)
	return cmd
}

func readReferenceEntries(path string) ([]milvus.ReferenceEntity, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeBadRequest, "reading reference file")
	}

	var entries []referenceEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeBadRequest, "parsing reference file")
	}

	out := make([]milvus.ReferenceEntity, 0, len(entries))
	for i, e := range entries {
		if e.Canonical == "" {
			return nil, errors.New(errors.ErrCodeValidation,
				fmt.Sprintf("entry %d: canonical is required", i))
		}
		typ := entity.Type(e.Type)
		if !entity.IsValidType(typ) {
			return nil, errors.New(errors.ErrCodeValidation,
				fmt.Sprintf("entry %d: unknown type %q", i, e.Type))
		}
		id := e.ID
		if id == "" {
			id = uuid.New().String()
		}
		out = append(out, milvus.ReferenceEntity{
			ID:        id,
			Canonical: e.Canonical,
			Type:      typ,
			Embedding: e.Embedding,
		})
	}
	return out, nil
}
