//go:build ignore

// Generates a typed ent client for the products schema:
//
//	go run ./db/ent/generate.go
package main

import (
	"log"

	"entgo.io/ent/entc"
	"entgo.io/ent/entc/gen"
)

func main() {
	if err := entc.Generate("./db/ent/schema", &gen.Config{
		Target:  "gen/ent",
		Package: "github.com/joseph-ayodele/expiry-tracker/gen/ent",
	}); err != nil {
		log.Fatal(err)
	}
}
