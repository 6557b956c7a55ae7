package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"discdrive/internal/api"
	"discdrive/internal/config"
	"discdrive/internal/disc"
	"discdrive/internal/disc/fingerprint"
)

// maxReadSectors bounds the buffer a single read command allocates.
const maxReadSectors = 4096

func newDiscCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newInfoCommand(ctx),
		newTOCCommand(ctx),
		newReadCommand(ctx),
		newSubQCommand(ctx),
	}
}

func newInfoCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Probe the disc and show its geometry",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSource(cmd, func(cfg *config.Config, src disc.Source) error {
				geometry := src.Geometry()
				toc := src.ReadTOC()
				fp, err := fingerprint.ComputeTimeout(cmd.Context(), src, 0)
				if err != nil {
					return fmt.Errorf("fingerprint: %w", err)
				}

				if asJSON {
					status := api.FromGeometry(cfg.Drive.Device, geometry, toc)
					status.Fingerprint = fp
					return writeJSON(cmd, status)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Device:       %s\n", cfg.Drive.Device)
				fmt.Fprintf(out, "Media:        %s\n", mediaLabel(geometry.Media))
				fmt.Fprintf(out, "Sectors:      %d (%s)\n", geometry.SectorCount, humanize.IBytes(uint64(geometry.SectorCount)*disc.SectorSize))
				if geometry.IsDualLayer() {
					fmt.Fprintf(out, "Layer break:  %d\n", geometry.LayerBreak)
				}
				if geometry.Media == disc.MediaCD {
					fmt.Fprintf(out, "Tracks:       %d\n", len(toc))
				}
				fmt.Fprintf(out, "Fingerprint:  %s\n", fp)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newTOCCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "toc",
		Short: "Show the CD table of contents",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSource(cmd, func(cfg *config.Config, src disc.Source) error {
				toc := src.ReadTOC()
				if asJSON {
					tracks := api.FromTOC(toc)
					if tracks == nil {
						tracks = []api.Track{}
					}
					return writeJSON(cmd, tracks)
				}

				out := cmd.OutOrStdout()
				if len(toc) == 0 {
					fmt.Fprintf(out, "No table of contents (media: %s)\n", mediaLabel(src.MediaType()))
					return nil
				}

				rows := make([][]string, 0, len(toc)+1)
				for _, entry := range toc {
					kind := "Audio"
					if entry.IsData() {
						kind = "Data"
					}
					rows = append(rows, []string{
						strconv.Itoa(int(entry.Track)),
						strconv.FormatUint(uint64(entry.LBA), 10),
						disc.LBAToMSF(entry.LBA).String(),
						kind,
						strconv.Itoa(int(entry.Adr)),
						fmt.Sprintf("0x%X", entry.Control),
					})
				}
				leadOut := src.SectorCount()
				rows = append(rows, []string{"Lead-out", strconv.FormatUint(uint64(leadOut), 10), disc.LBAToMSF(leadOut).String(), "", "", ""})

				fmt.Fprintln(out, renderTable(out,
					[]string{"Track", "LBA", "MSF", "Type", "ADR", "Control"},
					rows,
					[]columnAlignment{alignRight, alignRight, alignRight, alignLeft, alignRight, alignRight},
				))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newReadCommand(ctx *commandContext) *cobra.Command {
	var (
		sector  uint32
		count   uint32
		raw     bool
		hexDump bool
		outPath string
	)
	cmd := &cobra.Command{
		Use:   "read",
		Short: "Read sectors from the disc",
		Long: "Read cooked 2048-byte sectors, or raw 2352-byte frames with --raw.\n" +
			"Data goes to --out, as a hex dump to a terminal, or as raw bytes to a pipe.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if count == 0 {
				return errors.New("--count must be at least 1")
			}
			if count > maxReadSectors {
				return fmt.Errorf("--count %d exceeds the limit of %d sectors", count, maxReadSectors)
			}

			return ctx.withSource(cmd, func(cfg *config.Config, src disc.Source) error {
				size := disc.SectorSize
				read := src.ReadSectors2048
				if raw {
					size = disc.RawSectorSize
					read = src.ReadSectors2352
				}
				buf := make([]byte, int(count)*size)
				if err := read(sector, count, buf); err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				switch {
				case outPath != "":
					if err := os.WriteFile(outPath, buf, 0o644); err != nil {
						return fmt.Errorf("write %s: %w", outPath, err)
					}
					fmt.Fprintf(out, "Wrote %d bytes (sectors %d-%d) to %s\n", len(buf), sector, sector+count-1, outPath)
				case hexDump || isTerminal(out):
					fmt.Fprint(out, hex.Dump(buf))
				default:
					if _, err := out.Write(buf); err != nil {
						return fmt.Errorf("write output: %w", err)
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().Uint32Var(&sector, "sector", 0, "First sector (LBA) to read")
	cmd.Flags().Uint32Var(&count, "count", 1, "Number of sectors to read")
	cmd.Flags().BoolVar(&raw, "raw", false, "Read raw 2352-byte CD frames")
	cmd.Flags().BoolVar(&hexDump, "hex", false, "Always write a hex dump")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write the data to this file")
	return cmd
}

type subQOutput struct {
	Adr   uint8 `json:"adr"`
	Track uint8 `json:"track"`
	Index uint8 `json:"index"`
}

func newSubQCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "subq",
		Short: "Show the current subchannel Q position",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSource(cmd, func(cfg *config.Config, src disc.Source) error {
				subQ, err := src.ReadTrackSubQ()
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, subQOutput{Adr: subQ.Adr, Track: subQ.TrackNum, Index: subQ.TrackIndex})
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Track:  %d\n", subQ.TrackNum)
				fmt.Fprintf(out, "Index:  %d\n", subQ.TrackIndex)
				fmt.Fprintf(out, "ADR:    %d\n", subQ.Adr)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}
