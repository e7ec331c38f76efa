package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRemoveTimeTags(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"single tag", "[time: 2024/01/01 12:00:00] hello", "hello"},
		{"multiple tags", "[time: 2024/01/01 12:00:00] a [time: 2024/01/02 13:00:00] b", "a b"},
		{"no tag", "hello world", "hello world"},
		{"empty", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, RemoveTimeTags(tc.in))
		})
	}
}

func TestRemoveMentions(t *testing.T) {
	assert.Equal(t, "hello", RemoveMentions("<@123456789> hello"))
	assert.Equal(t, "hello", RemoveMentions("<@!123456789> hello"))
	assert.Equal(t, "a  b", RemoveMentions("a <@1> b <@2>"))
	assert.Equal(t, "no mentions", RemoveMentions("no mentions"))
}

func TestRemoveParentheses(t *testing.T) {
	assert.Equal(t, "hello", RemoveParentheses("hello (aside)"))
	assert.Equal(t, "こんにちは", RemoveParentheses("こんにちは（笑）"))
	assert.Equal(t, "a  b", RemoveParentheses("a (x) b (y)"))
	assert.Equal(t, "plain", RemoveParentheses("plain"))
}

func TestSplitSentences(t *testing.T) {
	got := splitSentences("おはよう。元気？うん！じゃあね")
	assert.Equal(t, []string{"おはよう。", "元気？", "うん！", "じゃあね"}, got)

	assert.Equal(t, []string{"no terminator"}, splitSentences("no terminator"))
	assert.Nil(t, splitSentences(""))
}

func TestRemoveChineseSentences(t *testing.T) {
	// A pure-Chinese sentence is dropped, the Japanese one survives.
	in := "你好吗？おはようございます。"
	assert.Equal(t, "おはようございます。", RemoveChineseSentences(in, 0.95))

	// Japanese with kanji stays well under the threshold.
	in = "元気です。"
	assert.Equal(t, "元気です。", RemoveChineseSentences(in, 0.95))

	// ASCII punctuation is not a sentence boundary; text without CJK letters
	// is kept whole.
	in = "Hello there! How are you?"
	assert.Equal(t, "Hello there! How are you?", RemoveChineseSentences(in, 0.95))
}

func TestExtractSpeakableText(t *testing.T) {
	in := "[time: 2024/05/01 09:30:00] <@42> こんにちは（メモ）、元気です。你好你好你好。"
	assert.Equal(t, "こんにちは、元気です。", ExtractSpeakableText(in))
}

func TestExtractSpeakableTextPlainEnglish(t *testing.T) {
	assert.Equal(t, "The weather is nice today.", ExtractSpeakableText("The weather is nice today."))
}
