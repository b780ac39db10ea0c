package modeladapter

// AnnotateCache returns a copy of messages with up to four content blocks
// marked Cached=true, implementing the breakpoint selection rule of
// SPEC_FULL.md §4.5. The input is never mutated.
//
// Selection order (earlier rules win when candidates overlap or the four
// slots fill up):
//  1. The last message.
//  2. The message immediately preceding the last user-role message (if any
//     and distinct from rule 1's message).
//  3. The message immediately preceding the second-to-last user-role
//     message (if any and distinct from the above).
//  4. The last system message (if any and distinct from the above) — the
//     caller passes the system prompt's own cache eligibility separately
//     via AnnotateSystemCache, since system content lives outside Messages
//     in the Anthropic wire format.
func AnnotateCache(messages []Message) []Message {
	out := make([]Message, len(messages))
	for i, m := range messages {
		out[i] = Message{Role: m.Role, Content: append([]ContentBlock(nil), m.Content...)}
	}

	candidates := candidateIndices(out)
	for _, idx := range candidates {
		markLastCacheableBlock(&out[idx])
	}
	return out
}

// candidateIndices returns up to four distinct message indices, in
// selection-priority order, per rules 1-3 (rule 4 has no Messages-array
// counterpart; see AnnotateSystemCache).
func candidateIndices(messages []Message) []int {
	var picks []int
	seen := map[int]bool{}

	add := func(idx int) {
		if idx < 0 || idx >= len(messages) || seen[idx] {
			return
		}
		seen[idx] = true
		picks = append(picks, idx)
	}

	if len(messages) > 0 {
		add(len(messages) - 1) // rule 1
	}

	userIdxs := userMessageIndices(messages)
	if n := len(userIdxs); n >= 1 {
		add(userIdxs[n-1] - 1) // rule 2: predecessor of last user message
	}
	if n := len(userIdxs); n >= 2 {
		add(userIdxs[n-2] - 1) // rule 3: predecessor of second-to-last user message
	}

	if len(picks) > 4 {
		picks = picks[:4]
	}
	return picks
}

// CountCached returns how many content blocks across messages carry a
// cache breakpoint, for deciding whether the system prompt (rule 4) still
// has a free slot.
func CountCached(messages []Message) int {
	n := 0
	for _, m := range messages {
		for _, b := range m.Content {
			if b.Cached {
				n++
			}
		}
	}
	return n
}

// AnnotateSystemCache reports whether the system prompt (rule 4) should
// receive a cache breakpoint: only when it is non-empty and the four
// Messages-array slots from AnnotateCache did not already fill up with
// message-level breakpoints (a system prompt is always a single message in
// Anthropic's wire format, so it's rule 4 or nothing).
func AnnotateSystemCache(systemPrompt string, messageBreakpoints int) bool {
	return systemPrompt != "" && messageBreakpoints < 4
}

func userMessageIndices(messages []Message) []int {
	var idxs []int
	for i, m := range messages {
		if m.Role == RoleUser {
			idxs = append(idxs, i)
		}
	}
	return idxs
}

// markLastCacheableBlock marks the first non-empty, not-already-marked
// content block in the message, per §4.5: "mark the first non-empty text
// item that has no existing marker. Never mark an empty-text item."
func markLastCacheableBlock(m *Message) {
	if len(m.Content) == 0 {
		return
	}
	for i := range m.Content {
		b := &m.Content[i]
		if b.Cached || b.IsEmptyText() {
			continue
		}
		b.Cached = true
		return
	}
}
