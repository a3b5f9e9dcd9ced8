package crisis_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"kairos_go/internal/crisis"
)

func TestDetect(t *testing.T) {
	cases := []struct {
		name string
		text string
		want bool
	}{
		{"ExactPhrase", "I want to kill myself", true},
		{"UpperCase", "I WANT TO DIE", true},
		{"MixedCase", "sometimes i think about Suicide", true},
		{"PhraseInsideSentence", "he said he would end my life if I told anyone", true},
		{"HurtMyself", "I might hurt myself tonight", true},
		{"DieBySuicide", "people who die by suicide often hide it", true},
		{"NeutralText", "I had a great day", false},
		{"Empty", "", false},
		{"NearMiss", "this homework is killing me", false},
		{"PartialWords", "the suit case is heavy", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, crisis.Detect(tc.text))
		})
	}
}
