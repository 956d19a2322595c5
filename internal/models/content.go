package models

import "time"

type Status string

const (
	StatusDraft     Status = "draft"
	StatusPending   Status = "pending"
	StatusPublished Status = "published"
	StatusRejected  Status = "rejected"
	StatusArchived  Status = "archived"
)

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusPending, StatusPublished, StatusRejected, StatusArchived:
		return true
	}
	return false
}

type ContentType string

const (
	TypeHack  ContentType = "hack"
	TypeTip   ContentType = "tip"
	TypeFact  ContentType = "fact"
	TypeQuote ContentType = "quote"
)

func (c ContentType) Valid() bool {
	switch c {
	case TypeHack, TypeTip, TypeFact, TypeQuote:
		return true
	}
	return false
}

type Difficulty string

const (
	Beginner     Difficulty = "beginner"
	Intermediate Difficulty = "intermediate"
	Advanced     Difficulty = "advanced"
)

func (d Difficulty) Valid() bool {
	return d == Beginner || d == Intermediate || d == Advanced
}

type Pool string

const (
	PoolRegular     Pool = "regular"
	PoolAccepted    Pool = "accepted"
	PoolHighlyLiked Pool = "highly_liked"
	PoolDisliked    Pool = "disliked"
	PoolPremium     Pool = "premium"
)

func (p Pool) Valid() bool {
	switch p {
	case PoolRegular, PoolAccepted, PoolHighlyLiked, PoolDisliked, PoolPremium:
		return true
	}
	return false
}

// RotationPools lists the pools the daily feed draws from, best first.
var RotationPools = []Pool{PoolHighlyLiked, PoolAccepted, PoolRegular}

// AllPools is the order used for pool statistics.
var AllPools = []Pool{PoolRegular, PoolAccepted, PoolHighlyLiked, PoolDisliked, PoolPremium}

const (
	minRatingsForPool = 5
	minLikesForTop    = 10
)

type ContentStats struct {
	Views    int `json:"views"`
	Likes    int `json:"likes"`
	Dislikes int `json:"dislikes"`
	Saves    int `json:"saves"`
	Shares   int `json:"shares"`
}

type Moderation struct {
	Notes       string     `json:"notes,omitempty"`
	ModeratedBy string     `json:"moderatedBy,omitempty"`
	ModeratedAt *time.Time `json:"moderatedAt,omitempty"`
}

// CategoryRef is the populated view of a content item's category.
type CategoryRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Icon  string `json:"icon,omitempty"`
	Color string `json:"color,omitempty"`
}

type AuthorRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Content struct {
	ID              string       `json:"id"`
	Title           string       `json:"title"`
	Body            string       `json:"body"`
	Summary         string       `json:"summary"`
	Category        CategoryRef  `json:"category"`
	Author          *AuthorRef   `json:"author,omitempty"`
	Tags            []string     `json:"tags"`
	Status          Status       `json:"status"`
	ContentType     ContentType  `json:"contentType"`
	Difficulty      Difficulty   `json:"difficulty"`
	Pool            Pool         `json:"pool"`
	Premium         bool         `json:"premium"`
	PublishDate     *time.Time   `json:"publishDate,omitempty"`
	UsageCount      int          `json:"usageCount"`
	LastUsedDate    *time.Time   `json:"lastUsedDate,omitempty"`
	LastRewriteDate *time.Time   `json:"lastRewriteDate,omitempty"`
	Moderation      Moderation   `json:"moderation"`
	Stats           ContentStats `json:"stats"`
	AIGenerated     bool         `json:"aiGenerated"`
	AIModel         string       `json:"aiModel,omitempty"`
	CreatedAt       time.Time    `json:"createdAt"`
	UpdatedAt       time.Time    `json:"updatedAt"`
}

// UpdatePool recomputes the pool from the like/dislike counts.
// Premium placement is an editorial decision and is left alone.
func (c *Content) UpdatePool() {
	if c.Pool == PoolPremium {
		return
	}
	c.Pool = PoolFor(c.Stats.Likes, c.Stats.Dislikes)
}

// PoolFor derives the rating pool for the given counts.
func PoolFor(likes, dislikes int) Pool {
	total := likes + dislikes
	if total < minRatingsForPool {
		return PoolRegular
	}
	ratio := float64(likes) / float64(total)
	switch {
	case ratio >= 0.8 && likes >= minLikesForTop:
		return PoolHighlyLiked
	case ratio >= 0.6:
		return PoolAccepted
	case dislikes > likes:
		return PoolDisliked
	}
	return PoolRegular
}

type Category struct {
	ID                   string      `json:"id"`
	Name                 string      `json:"name"`
	Slug                 string      `json:"slug"`
	Description          string      `json:"description"`
	Icon                 string      `json:"icon"`
	Color                string      `json:"color"`
	Active               bool        `json:"active"`
	ContentType          ContentType `json:"contentType"`
	DefaultNumToGenerate int         `json:"defaultNumToGenerate"`
	Prompt               string      `json:"prompt,omitempty"`
	Order                int         `json:"order"`
	CreatedAt            time.Time   `json:"createdAt"`
}

func (c Category) Ref() CategoryRef {
	return CategoryRef{ID: c.ID, Name: c.Name, Slug: c.Slug, Icon: c.Icon, Color: c.Color}
}

type Interval string

const (
	IntervalMonth Interval = "month"
	IntervalYear  Interval = "year"
)

type SubscriptionPlan struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Tier       Tier      `json:"tier"`
	PriceCents int64     `json:"priceCents"`
	Currency   string    `json:"currency"`
	Interval   Interval  `json:"interval"`
	Features   []string  `json:"features"`
	DailyLimit int       `json:"dailyLimit"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"createdAt"`
}

type PromptTemplate struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	CategoryID   string      `json:"category,omitempty"`
	ContentType  ContentType `json:"contentType"`
	SystemPrompt string      `json:"systemPrompt,omitempty"`
	Template     string      `json:"template"`
	Active       bool        `json:"active"`
	IsDefault    bool        `json:"isDefault"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

// Summarize shortens text to 120 runes, marking the cut with "...".
func Summarize(text string) string {
	r := []rune(text)
	if len(r) <= 120 {
		return text
	}
	return string(r[:120]) + "..."
}
