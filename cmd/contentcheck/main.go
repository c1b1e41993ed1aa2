// Command contentcheck validates a content catalog file before it is deployed.
//
// Usage:
//
//	contentcheck [-hosting-url URL] [-strict] catalog.yaml
//
// It exits non-zero when the file does not load or has errors; with -strict
// warnings fail the check too.
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"gnome-garden/domain/garden"
	"gnome-garden/infrastructure/content"
)

func main() {
	hostingURL := flag.String("hosting-url", "https://example.com", "value substituted for the hosting placeholder")
	strict := flag.Bool("strict", false, "treat warnings as failures")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: contentcheck [-hosting-url URL] [-strict] catalog.yaml")
		os.Exit(2)
	}
	os.Exit(run(flag.Arg(0), *hostingURL, *strict))
}

func run(path, hostingURL string, strict bool) int {
	c, err := content.Load(path, hostingURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
		return 1
	}

	fmt.Printf("%s: %d templates\n", path, c.Templates.Len())
	for i := 1; i <= c.Templates.Len(); i++ {
		t := c.Templates.Get(i)
		counts := map[garden.Category]int{}
		for _, s := range t.Slots {
			counts[s.Category]++
		}
		cats := make([]string, 0, len(counts))
		for cat, n := range counts {
			cats = append(cats, fmt.Sprintf("%s=%d", cat, n))
		}
		sort.Strings(cats)
		fmt.Printf("  template %d %q: %d slots %v\n", i, t.Name, len(t.Slots), cats)
	}

	problems := content.Check(c)
	failed := false
	for _, p := range problems {
		fmt.Println("  " + p.String())
		if p.Severity == content.SeverityError || strict {
			failed = true
		}
	}
	if failed {
		return 1
	}
	fmt.Println("ok")
	return 0
}
