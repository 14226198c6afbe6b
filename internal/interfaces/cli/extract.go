package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/bpointel/docintel/internal/application"
	"github.com/bpointel/docintel/internal/infrastructure/database/redis"
	"github.com/bpointel/docintel/internal/infrastructure/monitoring/logging"
	"github.com/bpointel/docintel/internal/pipeline"
	"github.com/bpointel/docintel/pkg/errors"
)

// workflowLockTTL bounds how long a crashed run can hold its workflow lock.
const workflowLockTTL = 10 * time.Minute

// newExtractCmd builds the batch extraction command.  Input is a JSON array
// or newline-delimited JSON of documents; re-running the same batch is safe
// because persistence is idempotent.
func newExtractCmd() *cobra.Command {
	var (
		inputPath  string
		workflowID string
		runID      string
		resume     bool
		publish    bool
	)

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Run the extraction pipeline over a batch of documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			inputs, err := readInputs(inputPath)
			if err != nil {
				return err
			}
			if len(inputs) == 0 {
				return errors.New(errors.ErrCodeBadRequest, "input contains no documents")
			}
			if runID == "" {
				runID = uuid.New().String()
			}

			app, err := application.New(ctx, cliCtx.Config, cliCtx.Logger, application.Options{WithKafka: publish})
			if err != nil {
				return err
			}
			defer app.Close()

			// One run per workflow at a time; a second invocation fails fast
			// instead of double-processing.
			if app.Redis != nil {
				lock := redis.NewWorkflowLock(app.Redis, workflowID, workflowLockTTL, cliCtx.Logger)
				ok, lerr := lock.TryLock(ctx)
				if lerr != nil {
					return lerr
				}
				if !ok {
					return errors.New(errors.ErrCodeConflict,
						fmt.Sprintf("workflow %q is already running", workflowID))
				}
				defer lock.Unlock(ctx) //nolint:errcheck
			}

			offset := 0
			if resume {
				cp, ok, cerr := app.Checkpoints.Load(ctx, workflowID, pipeline.PhaseExtraction)
				if cerr != nil {
					return cerr
				}
				if ok {
					offset = cp.Offset
					cliCtx.Logger.Info("resuming from checkpoint",
						logging.String("workflow_id", workflowID),
						logging.Int("offset", offset),
					)
				}
			}

			summary, err := app.Driver.ProcessBatch(ctx, workflowID, runID, inputs, offset)
			if err != nil {
				return err
			}

			return printResult(cmd, summary, func() string {
				return fmt.Sprintf(
					"workflow %s run %s: %d documents, %d chunks, %d entities, %d relationships (%d failed, %d llm calls, %d budget skips)",
					summary.WorkflowID, summary.RunID,
					summary.Documents, summary.Chunks, summary.Entities, summary.Relationships,
					len(summary.FailedDocuments), summary.LLMInvocations, summary.LLMBudgetSkips,
				)
			})
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "input file of documents, or - for stdin")
	cmd.Flags().StringVarP(&workflowID, "workflow-id", "w", "", "workflow identifier for checkpoints and locking")
	cmd.Flags().StringVar(&runID, "run-id", "", "run identifier (default: random)")
	cmd.Flags().BoolVar(&resume, "resume", false, "resume from the workflow's last checkpoint")
	cmd.Flags().BoolVar(&publish, "publish", false, "publish the batch summary to Kafka")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("workflow-id")

	return cmd
}

// readInputs parses either a JSON array of documents or newline-delimited
// JSON, one document per line.
func readInputs(path string) ([]pipeline.DocumentInput, error) {
	var r io.Reader
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeBadRequest, "opening input file")
		}
		defer f.Close()
		r = f
	}

	br := bufio.NewReader(r)
	first, err := firstByte(br)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeBadRequest, "reading input")
	}

	if first == '[' {
		var inputs []pipeline.DocumentInput
		if err := json.NewDecoder(br).Decode(&inputs); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeBadRequest, "parsing input array")
		}
		return inputs, nil
	}

	var inputs []pipeline.DocumentInput
	dec := json.NewDecoder(br)
	for {
		var in pipeline.DocumentInput
		if err := dec.Decode(&in); err == io.EOF {
			break
		} else if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeBadRequest, "parsing input line")
		}
		inputs = append(inputs, in)
	}
	return inputs, nil
}

// firstByte peeks past leading whitespace without consuming the document.
func firstByte(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.Peek(1)
		if err != nil {
			return 0, err
		}
		switch b[0] {
		case ' ', '\t', '\r', '\n':
			if _, err := br.ReadByte(); err != nil {
				return 0, err
			}
		default:
			return b[0], nil
		}
	}
}
