package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/peterh/liner"

	"github.com/DylanGutierrezUO/database-processing-project/pkg/compression"
	"github.com/DylanGutierrezUO/database-processing-project/pkg/database"
	"github.com/DylanGutierrezUO/database-processing-project/pkg/query"
	"github.com/DylanGutierrezUO/database-processing-project/pkg/table"
)

const usage = `Commands:
  tables                               list tables
  create <table> <numColumns> <key>    create a table
  drop <table>                         drop a table
  use <table>                          set the current table
  insert <v0> <v1> ...                 insert a record
  select <key> [version]               read a record (version 0, -1, -2, ...)
  update <key> <v|_> ...               update; _ keeps the current value
  delete <key>                         delete a record
  sum <start> <end> <col> [version]    sum a column over a key range
  index <col>                          create a secondary index
  merge                                compact all tables
  flush                                flush dirty pages to disk
  stats                                show table stats
  help                                 show this help
  exit                                 close the database and quit
`

type repl struct {
	db      *database.Database
	current *table.Table
	line    *liner.State
}

func main() {
	dataDir := flag.String("data-dir", "./data", "Data directory for page files and metadata")
	compressionAlg := flag.String("compression", "none", "Page compression: none, snappy, zstd, gzip, zlib")
	flag.Parse()

	if err := run(*dataDir, *compressionAlg); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(dataDir, compressionAlg string) error {
	algorithm, err := compression.ParseAlgorithm(compressionAlg)
	if err != nil {
		return err
	}

	config := database.DefaultConfig(dataDir)
	config.Compression = &compression.Config{Algorithm: algorithm, Level: 3}
	db, err := database.Open(config)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	r := &repl{db: db, line: liner.NewLiner()}
	defer r.line.Close()
	r.line.SetCtrlCAborts(true)

	fmt.Printf("lstore cli — data directory %s\nType 'help' for commands\n", dataDir)

	for {
		input, err := r.line.Prompt("lstore> ")
		if err == liner.ErrPromptAborted || err == io.EOF {
			fmt.Println()
			break
		}
		if err != nil {
			return err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		r.line.AppendHistory(input)

		if input == "exit" || input == "quit" {
			break
		}
		if err := r.dispatch(strings.Fields(input)); err != nil {
			fmt.Printf("error: %v\n", err)
		}
	}

	return db.Close()
}

func (r *repl) dispatch(args []string) error {
	switch args[0] {
	case "help":
		fmt.Print(usage)
		return nil
	case "tables":
		for _, name := range r.db.Tables() {
			fmt.Println(name)
		}
		return nil
	case "create":
		return r.create(args[1:])
	case "drop":
		if len(args) != 2 {
			return fmt.Errorf("usage: drop <table>")
		}
		return r.db.DropTable(args[1])
	case "use":
		if len(args) != 2 {
			return fmt.Errorf("usage: use <table>")
		}
		t, ok := r.db.GetTable(args[1])
		if !ok {
			return fmt.Errorf("table not found: %s", args[1])
		}
		r.current = t
		return nil
	case "insert":
		return r.insert(args[1:])
	case "select":
		return r.selectRecord(args[1:])
	case "update":
		return r.update(args[1:])
	case "delete":
		return r.deleteRecord(args[1:])
	case "sum":
		return r.sum(args[1:])
	case "index":
		return r.createIndex(args[1:])
	case "merge":
		counts, err := r.db.MergeAll()
		if err != nil {
			return err
		}
		for name, n := range counts {
			fmt.Printf("%s: %d records compacted\n", name, n)
		}
		return nil
	case "flush":
		return r.db.Flush()
	case "stats":
		for _, name := range r.db.Tables() {
			if t, ok := r.db.GetTable(name); ok {
				s := t.Stats()
				fmt.Printf("%s: %d columns (key %d), %d base, %d tail, %d deleted\n",
					s.Name, s.NumColumns, s.KeyColumn, s.BaseRecords, s.TailRecords, s.Deleted)
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown command %q, try 'help'", args[0])
	}
}

func (r *repl) table() (*table.Table, error) {
	if r.current == nil {
		return nil, fmt.Errorf("no table selected, run 'use <table>' first")
	}
	return r.current, nil
}

func (r *repl) create(args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("usage: create <table> <numColumns> <key>")
	}
	numColumns, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("numColumns must be an integer")
	}
	keyIndex, err := strconv.Atoi(args[2])
	if err != nil {
		return fmt.Errorf("key must be an integer")
	}
	t, err := r.db.CreateTable(args[0], numColumns, keyIndex)
	if err != nil {
		return err
	}
	r.current = t
	return nil
}

func (r *repl) insert(args []string) error {
	t, err := r.table()
	if err != nil {
		return err
	}
	values, err := parseInts(args)
	if err != nil {
		return err
	}
	return query.New(t).Insert(values...)
}

func (r *repl) selectRecord(args []string) error {
	t, err := r.table()
	if err != nil {
		return err
	}
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("usage: select <key> [version]")
	}
	key, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("key must be an integer")
	}
	version := 0
	if len(args) == 2 {
		if version, err = strconv.Atoi(args[1]); err != nil {
			return fmt.Errorf("version must be an integer")
		}
	}

	projected := make([]int, t.NumColumns())
	for i := range projected {
		projected[i] = i
	}
	records, err := query.New(t).SelectVersion(key, t.KeyColumn(), projected, version)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("(no record)")
		return nil
	}
	for _, rec := range records {
		fmt.Println(formatRow(rec.Columns))
	}
	return nil
}

func (r *repl) update(args []string) error {
	t, err := r.table()
	if err != nil {
		return err
	}
	if len(args) < 2 {
		return fmt.Errorf("usage: update <key> <v|_> ...")
	}
	key, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("key must be an integer")
	}

	values := make([]table.Value, len(args)-1)
	for i, arg := range args[1:] {
		if arg == "_" {
			continue
		}
		v, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return fmt.Errorf("value %q must be an integer or _", arg)
		}
		values[i] = table.Int(v)
	}
	return query.New(t).Update(key, values...)
}

func (r *repl) deleteRecord(args []string) error {
	t, err := r.table()
	if err != nil {
		return err
	}
	if len(args) != 1 {
		return fmt.Errorf("usage: delete <key>")
	}
	key, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("key must be an integer")
	}
	return query.New(t).Delete(key)
}

func (r *repl) sum(args []string) error {
	t, err := r.table()
	if err != nil {
		return err
	}
	if len(args) < 3 || len(args) > 4 {
		return fmt.Errorf("usage: sum <start> <end> <col> [version]")
	}
	nums, err := parseInts(args[:3])
	if err != nil {
		return err
	}
	version := 0
	if len(args) == 4 {
		if version, err = strconv.Atoi(args[3]); err != nil {
			return fmt.Errorf("version must be an integer")
		}
	}

	sum, err := query.New(t).SumVersion(nums[0], nums[1], int(nums[2]), version)
	if err != nil {
		return err
	}
	fmt.Println(sum)
	return nil
}

func (r *repl) createIndex(args []string) error {
	t, err := r.table()
	if err != nil {
		return err
	}
	if len(args) != 1 {
		return fmt.Errorf("usage: index <col>")
	}
	col, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("col must be an integer")
	}
	return t.CreateIndex(col)
}

func parseInts(args []string) ([]int64, error) {
	values := make([]int64, len(args))
	for i, arg := range args {
		v, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("value %q must be an integer", arg)
		}
		values[i] = v
	}
	return values, nil
}

func formatRow(columns []int64) string {
	parts := make([]string, len(columns))
	for i, v := range columns {
		parts[i] = strconv.FormatInt(v, 10)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
