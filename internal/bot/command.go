package bot

import "strings"

// Command is a parsed bot command such as "/setapi abc".
type Command struct {
	Name string
	Args string
}

// ParseCommand parses text beginning with "/". The "@BotName" suffix used in
// group chats is stripped and the name is lowercased.
func ParseCommand(text string) (Command, bool) {
	if !strings.HasPrefix(text, "/") {
		return Command{}, false
	}

	head, rest, _ := strings.Cut(text[1:], " ")
	if i := strings.IndexAny(head, "\n\t"); i >= 0 {
		rest = head[i:] + " " + rest
		head = head[:i]
	}

	name, _, _ := strings.Cut(head, "@")
	if name == "" {
		return Command{}, false
	}

	return Command{Name: strings.ToLower(name), Args: strings.TrimSpace(rest)}, true
}
