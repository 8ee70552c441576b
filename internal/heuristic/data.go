package heuristic

import (
	"bufio"
	"embed"
	"strings"
)

//go:embed data/*.txt
var signalData embed.FS

var (
	spamKeywords      []string
	disposableDomains []string
)

func init() {
	spamKeywords = loadStringFile("data/spam_keywords.txt")
	disposableDomains = loadStringFile("data/disposable_domains.txt")
}

// loadStringFile reads a file of plain string patterns (one per line, #
// comments). Entries are lowercased so matching can stay case-insensitive.
func loadStringFile(name string) []string {
	f, err := signalData.Open(name)
	if err != nil {
		return nil
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, strings.ToLower(line))
	}
	return out
}

// PatternCounts returns the number of loaded entries per list, for startup logging.
func PatternCounts() map[string]int {
	return map[string]int{
		"spam_keywords":      len(spamKeywords),
		"disposable_domains": len(disposableDomains),
	}
}
