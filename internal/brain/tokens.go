package brain

// EstimateTokens approximates the model token cost of text. Printable ASCII
// runes (0x20-0x7E) cost 1, every other rune costs 2. It is a cheap
// deterministic proxy, not the model tokenizer.
func EstimateTokens(text string) int {
	n := 0
	for _, r := range text {
		if r >= 0x20 && r <= 0x7e {
			n++
		} else {
			n += 2
		}
	}
	return n
}
