package cardid

import "testing"

func TestNormalize(t *testing.T) {
	expected := "what is sm-2?\na scheduling algorithm.\nspaced repetition"
	normalized := Normalize("  What is SM-2? \r\n", "A scheduling algorithm.", "Spaced Repetition")

	if normalized != expected {
		t.Errorf("Expected normalized string to be '%s', but got '%s'", expected, normalized)
	}
}

func TestDerive(t *testing.T) {
	t.Run("generates correct id", func(t *testing.T) {
		// SHA-256 of "q\na\nc"
		expected := "eb2456c1ee4f36305069dd0f63a30e92d5443129f5e8fd9a5ec490fbc4d4d8a2"
		id := Derive("Q", "A", "C")

		if id != expected {
			t.Errorf("Expected id '%s', but got '%s'", expected, id)
		}
	})

	t.Run("id is deterministic", func(t *testing.T) {
		if Derive("Test", "", "") != Derive("Test", "", "") {
			t.Error("Expected ids for identical content to be the same")
		}
	})

	t.Run("normalization produces same id", func(t *testing.T) {
		a := Derive("  what is go? ", "A programming language.", "")
		b := Derive("What Is Go?", "A programming language.", "")
		if a != b {
			t.Error("Expected ids to be the same after normalization, but they were different.")
		}
	})

	t.Run("different content has different ids", func(t *testing.T) {
		if Derive("Card 1", "", "") == Derive("Card 2", "", "") {
			t.Error("Expected ids for different content to be different")
		}
	})
}
