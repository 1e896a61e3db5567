package repository

import "strings"

var likeReplacer = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// ContainsPattern turns a user query into a LIKE pattern that matches it as a
// literal substring. Use it with ESCAPE '!'.
func ContainsPattern(query string) string {
	return "%" + likeReplacer.Replace(query) + "%"
}
