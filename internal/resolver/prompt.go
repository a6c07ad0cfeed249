package resolver

import (
	"strings"

	"ambiance/internal/catalog"
)

// BuildSystemInstruction assembles the resolver's system instruction from
// the current catalog snapshot. It is rebuilt on every call, never cached,
// so a swapped-in snapshot takes effect immediately. Disabled sounds are
// never offered.
func BuildSystemInstruction(snap *catalog.Snapshot) string {
	var b strings.Builder
	b.WriteString("You are a helpful assistant that answers to the user's message by picking a sound and a UI theme from a list of sounds and UI themes.\n")
	b.WriteString("The user can tell a story, or ask directly for a sound and UI theme.\n")
	b.WriteString("If the message has an audio attachment, transcribe the audio file to pick the sound and UI theme (and return it in the \"transcript\" field).\n")
	b.WriteString("Always pick the sound and UI theme that best match ONLY the last user message, but use the entire conversation history as context.\n")
	b.WriteString("Always pick both a sound and a UI theme.\n")
	b.WriteString("Do not make up any sounds or UI themes.\n")
	b.WriteString("\n")

	b.WriteString("Here is a list of UI themes to choose from, formatted as \"- [themeId] themeName (themeDescription)\":\n")
	for _, id := range snap.ThemeIDs() {
		entry, _ := snap.Theme(id)
		b.WriteString(catalog.ThemeLine(id, entry))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString("Here is a list of sounds to choose from, formatted as \"- [soundId] soundName (soundTags)\":\n")
	for _, id := range snap.EnabledSoundIDs() {
		entry, _ := snap.Sound(id)
		b.WriteString(catalog.SoundLine(id, entry))
		b.WriteString("\n")
	}

	return b.String()
}
