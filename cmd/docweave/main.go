// Command docweave crawls a documentation site and writes it out as
// RAG-ready Markdown.
package main

import (
	cmd "github.com/docweave/crawler/internal/cli"
)

func main() {
	cmd.Execute()
}
