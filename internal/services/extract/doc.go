// Package extract turns rendered page HTML into structured event candidates
// through an LLM-backed chat-completions API. Pages are reduced to readable
// markdown before the call to keep prompts small and deterministic.
package extract
