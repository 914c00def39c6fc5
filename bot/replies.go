package bot

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed replies.yaml
var defaultRepliesYAML []byte

// Replies holds every user-visible text the dispatcher emits. The defaults
// are embedded; a deployment can override individual lines from a YAML file
// to re-skin the bot's voice without recompiling.
type Replies struct {
	RateLimited          string `yaml:"rate_limited"`
	IncenseLimit         string `yaml:"incense_limit"`
	IncenseCount         string `yaml:"incense_count"`
	RankingHeader        string `yaml:"ranking_header"`
	AnonymousUser        string `yaml:"anonymous_user"`
	AskMeme              string `yaml:"ask_meme"`
	AskCharacter         string `yaml:"ask_character"`
	AskShouldI           string `yaml:"ask_should_i"`
	AskQuestion          string `yaml:"ask_question"`
	AskID                string `yaml:"ask_id"`
	NoMoreImages         string `yaml:"no_more_images"`
	NotFound             string `yaml:"not_found"`
	CharacterFoundHeader string `yaml:"character_found_header"`
	CharacterNotFound    string `yaml:"character_not_found"`
	KeywordFoundHeader   string `yaml:"keyword_found_header"`
	ListFooter           string `yaml:"list_footer"`
	TriviaUnavailable    string `yaml:"trivia_unavailable"`
	TriviaNotFound       string `yaml:"trivia_not_found"`
	TriviaListHeader     string `yaml:"trivia_list_header"`
	TriviaListFooter     string `yaml:"trivia_list_footer"`
	InternalError        string `yaml:"internal_error"`
}

func DefaultReplies() *Replies {
	var r Replies
	// The embedded asset is fixed at build time; a decode failure is a
	// programming error.
	if err := yaml.Unmarshal(defaultRepliesYAML, &r); err != nil {
		panic(fmt.Sprintf("bot: embedded replies.yaml: %v", err))
	}
	return &r
}

// LoadReplies overlays the file at path onto the defaults. Keys missing
// from the file keep their default text.
func LoadReplies(path string) (*Replies, error) {
	r := DefaultReplies()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read replies %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("decode replies %s: %w", path, err)
	}
	return r, nil
}
