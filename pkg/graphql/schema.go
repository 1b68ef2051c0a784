package graphql

import (
	"fmt"

	"github.com/graphql-go/graphql"

	"github.com/DylanGutierrezUO/database-processing-project/pkg/database"
	"github.com/DylanGutierrezUO/database-processing-project/pkg/query"
	"github.com/DylanGutierrezUO/database-processing-project/pkg/table"
)

// Schema builds the GraphQL schema over a database's catalog
func Schema(db *database.Database) (graphql.Schema, error) {
	recordType := graphql.NewObject(graphql.ObjectConfig{
		Name:        "Record",
		Description: "A materialized row at a requested version",
		Fields: graphql.Fields{
			"rid": &graphql.Field{
				Type:        graphql.NewNonNull(graphql.Int),
				Description: "Base record identifier",
			},
			"key": &graphql.Field{
				Type:        graphql.NewNonNull(graphql.Int),
				Description: "Primary-key value",
			},
			"columns": &graphql.Field{
				Type:        graphql.NewList(graphql.NewNonNull(graphql.Int)),
				Description: "User column values; unprojected columns read zero",
			},
		},
	})

	tableStatsType := graphql.NewObject(graphql.ObjectConfig{
		Name:        "TableStats",
		Description: "Physical counters of one table",
		Fields: graphql.Fields{
			"name":        &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"numColumns":  &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
			"keyColumn":   &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
			"baseRecords": &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
			"tailRecords": &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
			"deleted":     &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		},
	})

	getTable := func(p graphql.ResolveParams) (*table.Table, error) {
		name, _ := p.Args["table"].(string)
		t, ok := db.GetTable(name)
		if !ok {
			return nil, fmt.Errorf("table not found: %s", name)
		}
		return t, nil
	}

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"tables": &graphql.Field{
				Type:        graphql.NewList(graphql.NewNonNull(graphql.String)),
				Description: "Names of all cataloged tables",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return db.Tables(), nil
				},
			},
			"tableStats": &graphql.Field{
				Type: tableStatsType,
				Args: graphql.FieldConfigArgument{
					"table": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					t, err := getTable(p)
					if err != nil {
						return nil, err
					}
					return t.Stats(), nil
				},
			},
			"select": &graphql.Field{
				Type:        graphql.NewList(recordType),
				Description: "Select records by primary key at a relative version (0 newest, -1 one back)",
				Args: graphql.FieldConfigArgument{
					"table":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"key":     &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
					"version": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					t, err := getTable(p)
					if err != nil {
						return nil, err
					}
					key, _ := p.Args["key"].(int)
					version, _ := p.Args["version"].(int)
					projected := make([]int, t.NumColumns())
					for i := range projected {
						projected[i] = i
					}
					return query.New(t).SelectVersion(int64(key), t.KeyColumn(), projected, version)
				},
			},
			"sum": &graphql.Field{
				Type:        graphql.Int,
				Description: "Sum a column over an inclusive primary-key range",
				Args: graphql.FieldConfigArgument{
					"table":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"start":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
					"end":     &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
					"column":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
					"version": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					t, err := getTable(p)
					if err != nil {
						return nil, err
					}
					start, _ := p.Args["start"].(int)
					end, _ := p.Args["end"].(int)
					column, _ := p.Args["column"].(int)
					version, _ := p.Args["version"].(int)
					return query.New(t).SumVersion(int64(start), int64(end), column, version)
				},
			},
		},
	})

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"createTable": &graphql.Field{
				Type: tableStatsType,
				Args: graphql.FieldConfigArgument{
					"name":       &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"numColumns": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
					"keyIndex":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					name, _ := p.Args["name"].(string)
					numColumns, _ := p.Args["numColumns"].(int)
					keyIndex, _ := p.Args["keyIndex"].(int)
					t, err := db.CreateTable(name, numColumns, keyIndex)
					if err != nil {
						return nil, err
					}
					return t.Stats(), nil
				},
			},
			"insert": &graphql.Field{
				Type: graphql.Int,
				Args: graphql.FieldConfigArgument{
					"table":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"values": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(graphql.Int)))},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					t, err := getTable(p)
					if err != nil {
						return nil, err
					}
					raw, _ := p.Args["values"].([]interface{})
					values := make([]int64, len(raw))
					for i, v := range raw {
						n, _ := v.(int)
						values[i] = int64(n)
					}
					if err := query.New(t).Insert(values...); err != nil {
						return nil, err
					}
					return values[t.KeyColumn()], nil
				},
			},
			"update": &graphql.Field{
				Type:        graphql.Int,
				Description: "Cumulative update; null list entries keep the current value",
				Args: graphql.FieldConfigArgument{
					"table":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"key":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
					"values": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.NewList(graphql.Int))},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					t, err := getTable(p)
					if err != nil {
						return nil, err
					}
					key, _ := p.Args["key"].(int)
					raw, _ := p.Args["values"].([]interface{})
					values := make([]table.Value, len(raw))
					for i, v := range raw {
						if n, ok := v.(int); ok {
							values[i] = table.Int(int64(n))
						}
					}
					if err := query.New(t).Update(int64(key), values...); err != nil {
						return nil, err
					}
					return key, nil
				},
			},
			"delete": &graphql.Field{
				Type: graphql.Int,
				Args: graphql.FieldConfigArgument{
					"table": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"key":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					t, err := getTable(p)
					if err != nil {
						return nil, err
					}
					key, _ := p.Args["key"].(int)
					if err := query.New(t).Delete(int64(key)); err != nil {
						return nil, err
					}
					return key, nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
}
