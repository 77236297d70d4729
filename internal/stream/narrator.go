package stream

import (
	"fmt"
	"strings"
	"sync"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/ricirt/pulse/internal/domain"
)

// GenericParagraphs is how many filler paragraphs an unknown subject gets.
const GenericParagraphs = 8

const paragraphSeparator = "\n\n"

// Narrator writes the activity text streamed for a subject.
type Narrator struct {
	mu    sync.Mutex // guards faker
	faker *gofakeit.Faker
}

func NewNarrator(faker *gofakeit.Faker) *Narrator {
	if faker == nil {
		faker = gofakeit.New(0)
	}
	return &Narrator{faker: faker}
}

// Narrate returns subject-specific activity text, or generic filler when s is nil.
// Paragraphs are separated by a blank line.
func (n *Narrator) Narrate(s *domain.Subject) string {
	n.mu.Lock()
	defer n.mu.Unlock()

	if s == nil {
		paragraphs := make([]string, GenericParagraphs)
		for i := range paragraphs {
			paragraphs[i] = n.paragraph()
		}
		return strings.Join(paragraphs, paragraphSeparator)
	}

	f := n.faker
	hobbies := s.Hobbies
	if len(hobbies) > 2 {
		hobbies = hobbies[:2]
	}
	lines := []string{
		fmt.Sprintf("%s has been actively exploring new opportunities in %s.", s.Name, f.BuzzWord()),
		fmt.Sprintf("Recently engaged with %d community discussions.", f.Number(5, 50)),
		fmt.Sprintf("Shows strong interest in %s.", strings.Join(hobbies, " and ")),
		fmt.Sprintf("Based in %s region, contributing to local initiatives.", s.Nationality),
		fmt.Sprintf("Profile engagement score trending %s this quarter.",
			f.RandomString([]string{"upward", "steadily", "positively"})),
		fmt.Sprintf("Last active %d hours ago.", f.Number(1, 24)),
		fmt.Sprintf("Connected with %d other users in the network.", f.Number(10, 200)),
		fmt.Sprintf("Participated in %d events this month.", f.Number(2, 15)),
		n.paragraph(),
		n.paragraph(),
	}
	return strings.Join(lines, paragraphSeparator)
}

func (n *Narrator) paragraph() string {
	f := n.faker
	return f.LoremIpsumParagraph(1, f.Number(3, 6), f.Number(8, 14), " ")
}
