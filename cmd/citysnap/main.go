package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/LeonidasJP/CitiesSkylines-Stats/internal/city"
	"github.com/LeonidasJP/CitiesSkylines-Stats/internal/persistence/capturedb"
	"github.com/LeonidasJP/CitiesSkylines-Stats/internal/persistence/snapshot"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	var err error
	switch os.Args[1] {
	case "import":
		err = importCmd(os.Args[2:], os.Stdout)
	case "list":
		err = listCmd(os.Args[2:], os.Stdout)
	case "export":
		err = exportCmd(os.Args[2:], os.Stdout)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "citysnap:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: citysnap import|list|export [flags]")
}

// importCmd converts YAML fixtures into snapshots and capture rows.
func importCmd(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	dataDir := fs.String("data", "./data", "output directory (snapshots/ and captures.db)")
	disableDB := fs.Bool("disable_db", false, "write snapshots only")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("import: no fixtures given")
	}

	var db *capturedb.DB
	if !*disableDB {
		var err error
		db, err = capturedb.Open(filepath.Join(*dataDir, "captures.db"))
		if err != nil {
			return err
		}
		defer db.Close()
	}

	ctx := context.Background()
	for _, fixture := range fs.Args() {
		c, err := city.LoadFixture(fixture)
		if err != nil {
			return fmt.Errorf("%s: %w", fixture, err)
		}
		// Round-trip through State so broken fixtures fail here.
		st, err := city.NewState(c)
		if err != nil {
			return fmt.Errorf("%s: %w", fixture, err)
		}
		snap := snapshot.New(st.Capture())
		path := filepath.Join(*dataDir, "snapshots", snapshotDir(c.CityName), snapshot.FileName(c.Tick))
		if err := snapshot.WriteSnapshot(path, snap); err != nil {
			return fmt.Errorf("%s: %w", fixture, err)
		}
		id := "-"
		if db != nil {
			if id, err = db.Put(ctx, snap.Capture, path); err != nil {
				return fmt.Errorf("%s: %w", fixture, err)
			}
		}
		fmt.Fprintf(out, "%s tick=%d buildings=%d -> %s (%s)\n",
			snap.Header.CityName, snap.Header.Tick, snap.Header.Buildings, path, id)
	}
	return nil
}

// listCmd prints captures from the database, or snapshot headers when -dir
// is given.
func listCmd(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	dataDir := fs.String("data", "./data", "data directory")
	cityName := fs.String("city", "", "city filter")
	dir := fs.String("dir", "", "list snapshot files in this directory instead of the database")
	if err := fs.Parse(args); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	defer tw.Flush()

	if d := strings.TrimSpace(*dir); d != "" {
		paths, err := snapshot.List(d)
		if err != nil {
			return err
		}
		fmt.Fprintln(tw, "CITY\tTICK\tBUILDINGS\tDISTRICTS\tPATH")
		for _, p := range paths {
			h, err := snapshot.ReadHeader(p)
			if err != nil {
				fmt.Fprintf(tw, "?\t?\t?\t?\t%s (%v)\n", p, err)
				continue
			}
			if *cityName != "" && h.CityName != *cityName {
				continue
			}
			fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%s\n", h.CityName, h.Tick, h.Buildings, h.Districts, p)
		}
		return nil
	}

	db, err := capturedb.Open(filepath.Join(*dataDir, "captures.db"))
	if err != nil {
		return err
	}
	defer db.Close()
	entries, err := db.List(context.Background(), *cityName)
	if err != nil {
		return err
	}
	fmt.Fprintln(tw, "ID\tCITY\tTICK\tBUILDINGS\tRECORDED\tSNAPSHOT")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\n",
			e.ID, e.CityName, e.Tick, e.Buildings, e.RecordedAt.UTC().Format(time.RFC3339), e.SnapshotPath)
	}
	return nil
}

// exportCmd writes a stored capture back out as YAML.
func exportCmd(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	dataDir := fs.String("data", "./data", "data directory")
	snapPath := fs.String("snapshot", "", "snapshot file (default: read from the database)")
	id := fs.String("id", "", "capture id")
	cityName := fs.String("city", "", "city name (with -tick, or latest)")
	tick := fs.Uint64("tick", 0, "latest capture at or before tick")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var c city.Capture
	switch {
	case *snapPath != "":
		snap, err := snapshot.ReadSnapshot(*snapPath)
		if err != nil {
			return err
		}
		c = snap.Capture
	default:
		db, err := capturedb.Open(filepath.Join(*dataDir, "captures.db"))
		if err != nil {
			return err
		}
		defer db.Close()
		ctx := context.Background()
		switch {
		case *id != "":
			c, err = db.Get(ctx, *id)
		case *tick > 0:
			if *cityName == "" {
				return fmt.Errorf("export: -tick requires -city")
			}
			c, err = db.At(ctx, *cityName, *tick)
		default:
			c, err = db.Latest(ctx, *cityName)
		}
		if err != nil {
			return err
		}
	}

	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return err
	}
	return enc.Close()
}

// snapshotDir maps a city name onto a directory name.
func snapshotDir(name string) string {
	name = strings.TrimSpace(strings.ToLower(name))
	if name == "" {
		return "unnamed"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}
