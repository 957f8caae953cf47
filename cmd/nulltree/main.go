// nulltree is the operator CLI for the nullifier set: it runs the Groth16
// setup for a circuit shape, proves non-membership from indexer-served
// inputs, and verifies proofs against their public inputs.
package main

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/shieldpool/nulltree/imt"
	"github.com/shieldpool/nulltree/indexer"
	"github.com/shieldpool/nulltree/logging"
	"github.com/shieldpool/nulltree/prover"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "nulltree",
		Short: "Indexed merkle tree nullifier set tooling",
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	var (
		jsonLogs bool
		logLevel string
	)
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "emit logs as JSON")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: trace, debug, info, warn, error")
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if jsonLogs {
			logging.SetJSONOutput(os.Stderr)
		}
		level, err := zerolog.ParseLevel(logLevel)
		if err != nil {
			return fmt.Errorf("parsing log level: %w", err)
		}
		logging.SetLevel(level)
		return nil
	}

	rootCmd.AddCommand(setupCmd(), proveCmd(), verifyCmd(), indexerCmd())
	if err := rootCmd.Execute(); err != nil {
		l := logging.Logger()
		l.Fatal().Err(err).Msg("command failed")
	}
}

func log() *zerolog.Logger {
	l := logging.Logger().With().Str("component", "cli").Logger()
	return &l
}

func setupCmd() *cobra.Command {
	var (
		circuit   string
		height    uint32
		batchSize uint32
		output    string
	)
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Compile a circuit and run the Groth16 setup",
		RunE: func(cmd *cobra.Command, args []string) error {
			var ct prover.CircuitType
			switch circuit {
			case "nonmembership":
				ct = prover.NonMembership
			case "batchinsertion":
				ct = prover.BatchInsertion
			default:
				return fmt.Errorf("unknown circuit %q (want nonmembership or batchinsertion)", circuit)
			}
			log().Info().
				Str("circuit", circuit).
				Uint32("height", height).
				Uint32("batchSize", batchSize).
				Msg("running setup")

			ps, err := prover.Setup(ct, height, batchSize)
			if err != nil {
				return err
			}
			f, err := os.Create(output)
			if err != nil {
				return err
			}
			defer f.Close()
			n, err := ps.WriteTo(f)
			if err != nil {
				return err
			}
			log().Info().Int64("bytes", n).Str("path", output).Msg("proving system written")
			return nil
		},
	}
	cmd.Flags().StringVar(&circuit, "circuit", "nonmembership", "circuit to set up: nonmembership or batchinsertion")
	cmd.Flags().Uint32Var(&height, "height", imt.ReferenceHeight, "tree height")
	cmd.Flags().Uint32Var(&batchSize, "batch-size", 1, "values per proof")
	cmd.Flags().StringVar(&output, "output", "nulltree.ps", "proving system output path")
	return cmd
}

func proveCmd() *cobra.Command {
	var (
		systemPath string
		inputsPath string
		output     string
	)
	cmd := &cobra.Command{
		Use:   "prove",
		Short: "Prove non-membership from an indexer inputs file",
		RunE: func(cmd *cobra.Command, args []string) error {
			ps, err := prover.ReadSystemFromFile(systemPath)
			if err != nil {
				return err
			}
			raw, err := os.ReadFile(inputsPath)
			if err != nil {
				return err
			}
			var inputs prover.NonMembershipInputsJSON
			if err := json.Unmarshal(raw, &inputs); err != nil {
				return fmt.Errorf("decoding %s: %w", inputsPath, err)
			}
			root, ws, err := inputs.Witnesses(int(ps.TreeHeight))
			if err != nil {
				return err
			}

			proof, err := ps.ProveNonMembership(root, ws)
			if err != nil {
				return err
			}
			out, err := json.Marshal(proof)
			if err != nil {
				return err
			}
			if err := os.WriteFile(output, out, 0o644); err != nil {
				return err
			}
			log().Info().
				Str("root", root.String()).
				Int("values", len(ws)).
				Str("path", output).
				Msg("proof written")
			return nil
		},
	}
	cmd.Flags().StringVar(&systemPath, "system", "nulltree.ps", "proving system path")
	cmd.Flags().StringVar(&inputsPath, "inputs", "", "JSON inputs file from the indexer")
	cmd.Flags().StringVar(&output, "output", "proof.json", "proof output path")
	cmd.MarkFlagRequired("inputs")
	return cmd
}

func verifyCmd() *cobra.Command {
	var (
		systemPath string
		proofPath  string
		rootHex    string
		valuesHex  string
	)
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify a non-membership proof against its public inputs",
		RunE: func(cmd *cobra.Command, args []string) error {
			ps, err := prover.ReadSystemFromFile(systemPath)
			if err != nil {
				return err
			}
			raw, err := os.ReadFile(proofPath)
			if err != nil {
				return err
			}
			var proof prover.Proof
			if err := json.Unmarshal(raw, &proof); err != nil {
				return fmt.Errorf("decoding %s: %w", proofPath, err)
			}
			root, err := hexutil.DecodeBig(rootHex)
			if err != nil {
				return fmt.Errorf("decoding root: %w", err)
			}
			var values []*big.Int
			for _, s := range strings.Split(valuesHex, ",") {
				v, err := hexutil.DecodeBig(strings.TrimSpace(s))
				if err != nil {
					return fmt.Errorf("decoding value %q: %w", s, err)
				}
				values = append(values, v)
			}

			if err := ps.VerifyNonMembership(root, values, &proof); err != nil {
				return err
			}
			log().Info().Str("root", root.String()).Int("values", len(values)).Msg("proof verified")
			return nil
		},
	}
	cmd.Flags().StringVar(&systemPath, "system", "nulltree.ps", "proving system path")
	cmd.Flags().StringVar(&proofPath, "proof", "proof.json", "proof path")
	cmd.Flags().StringVar(&rootHex, "root", "", "epoch root as a hex quantity")
	cmd.Flags().StringVar(&valuesHex, "values", "", "comma-separated nullifiers as hex quantities")
	cmd.MarkFlagRequired("root")
	cmd.MarkFlagRequired("values")
	return cmd
}

func indexerCmd() *cobra.Command {
	var (
		dbPath    string
		height    int
		appendHex string
		query     string
	)
	cmd := &cobra.Command{
		Use:   "indexer",
		Short: "Replay an insertion log and answer low-element queries",
		RunE: func(cmd *cobra.Command, args []string) error {
			ix, err := indexer.Open(dbPath, height)
			if err != nil {
				return err
			}
			defer ix.Close()
			log().Info().
				Uint64("leaves", ix.Count()).
				Str("root", ix.Root().String()).
				Msg("replica ready")

			if appendHex != "" {
				var values []*big.Int
				for _, s := range strings.Split(appendHex, ",") {
					v, err := hexutil.DecodeBig(strings.TrimSpace(s))
					if err != nil {
						return fmt.Errorf("decoding value %q: %w", s, err)
					}
					values = append(values, v)
				}
				if err := ix.AppendBatch(values); err != nil {
					return err
				}
				log().Info().Int("values", len(values)).Str("root", ix.Root().String()).Msg("appended")
			}

			if query != "" {
				v, err := hexutil.DecodeBig(query)
				if err != nil {
					return fmt.Errorf("decoding query: %w", err)
				}
				w, err := ix.GetLowElement(v)
				if err != nil {
					return err
				}
				out, err := json.MarshalIndent(w, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(out))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "insertion log path (empty for in-memory)")
	cmd.Flags().IntVar(&height, "height", imt.ReferenceHeight, "tree height")
	cmd.Flags().StringVar(&appendHex, "append", "", "comma-separated hex values to insert and log")
	cmd.Flags().StringVar(&query, "query", "", "value to fetch a low-element witness for")
	return cmd
}
