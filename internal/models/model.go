package models

import "time"

type Role string

const (
	RoleUser           Role = "user"
	RoleContentCreator Role = "content-creator"
	RoleModerator      Role = "moderator"
	RoleAdmin          Role = "admin"
)

// StaffRoles may see unpublished content and trigger generation.
var StaffRoles = []Role{RoleAdmin, RoleContentCreator, RoleModerator}

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleContentCreator, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

func (r Role) IsStaff() bool {
	for _, s := range StaffRoles {
		if r == s {
			return true
		}
	}
	return false
}

type Tier string

const (
	TierFree       Tier = "free"
	TierBasic      Tier = "basic"
	TierPremium    Tier = "premium"
	TierEnterprise Tier = "enterprise"
)

func (t Tier) Valid() bool {
	switch t {
	case TierFree, TierBasic, TierPremium, TierEnterprise:
		return true
	}
	return false
}

// DailyLimit is how many items a subscriber gets per daily feed.
func (t Tier) DailyLimit() int {
	switch t {
	case TierBasic:
		return 10
	case TierPremium:
		return 20
	case TierEnterprise:
		return 100
	}
	return 5
}

type SubscriptionStatus string

const (
	SubscriptionNone     SubscriptionStatus = "none"
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionCanceled SubscriptionStatus = "canceled"
	SubscriptionExpired  SubscriptionStatus = "expired"
)

func (s SubscriptionStatus) Valid() bool {
	switch s {
	case SubscriptionNone, SubscriptionActive, SubscriptionCanceled, SubscriptionExpired:
		return true
	}
	return false
}

type Subscription struct {
	Tier   Tier               `json:"tier"`
	Status SubscriptionStatus `json:"status"`
}

type Notifications struct {
	Email bool `json:"email"`
	Push  bool `json:"push"`
}

type ContentPreferences struct {
	Categories []string   `json:"categories"`
	Difficulty Difficulty `json:"difficulty,omitempty"`
}

type Preferences struct {
	Theme              string             `json:"theme"`
	Notifications      Notifications      `json:"notifications"`
	ContentPreferences ContentPreferences `json:"contentPreferences"`
}

type UserStats struct {
	TotalContentViewed int `json:"totalContentViewed"`
	TotalLikes         int `json:"totalLikes"`
	TotalDislikes      int `json:"totalDislikes"`
	CategoriesExplored int `json:"categoriesExplored"`
}

type CategoryProgress struct {
	CategoryID    string    `json:"category"`
	CategoryName  string    `json:"categoryName,omitempty"`
	ContentViewed int       `json:"contentViewed"`
	LastViewedAt  time.Time `json:"lastViewedAt"`
}

type Progress struct {
	CompletedContent []string           `json:"completedContent"`
	SavedContent     []string           `json:"savedContent"`
	CategoryProgress []CategoryProgress `json:"categoryProgress"`
}

type Platform string

const (
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
	PlatformWeb     Platform = "web"
)

func (p Platform) Valid() bool {
	return p == PlatformIOS || p == PlatformAndroid || p == PlatformWeb
}

type DeviceToken struct {
	Token    string    `json:"token"`
	Platform Platform  `json:"platform"`
	LastUsed time.Time `json:"lastUsed"`
}

type User struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Email        string        `json:"email"`
	PasswordHash string        `json:"-"`
	Avatar       string        `json:"avatar,omitempty"`
	Role         Role          `json:"role"`
	Active       bool          `json:"active"`
	Verified     bool          `json:"verified"`
	Subscription Subscription  `json:"subscription"`
	Preferences  Preferences   `json:"preferences"`
	Stats        UserStats     `json:"stats"`
	Progress     *Progress     `json:"progress,omitempty"`
	DeviceTokens []DeviceToken `json:"deviceTokens,omitempty"`
	LastLogin    *time.Time    `json:"lastLogin,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
}
