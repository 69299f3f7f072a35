package profile

// UserConfig is the static, user-supplied configuration that personalizes
// the assistant: location, language, dietary restrictions, budget level,
// household, and store preference. Learned preferences live in the memory
// subsystem; this record only changes when the user changes it.
type UserConfig struct {
	Name                string   `json:"name,omitempty"`
	CountryCode         string   `json:"country_code"`
	LanguageCode        string   `json:"language_code"`
	DietaryRestrictions []string `json:"dietary_restrictions,omitempty"`
	BudgetLevel         string   `json:"budget_level"`
	HouseholdSize       int      `json:"household_size"`
	StorePreference     string   `json:"store_preference"`
	StoreWebsites       []string `json:"store_websites,omitempty"`
}

// Budget levels.
const (
	BudgetLow     = "low"
	BudgetMedium  = "medium"
	BudgetHigh    = "high"
	BudgetNoLimit = "no_limit"
)

// DefaultUserConfig returns the documented defaults for a user with no
// stored configuration.
func DefaultUserConfig() UserConfig {
	return UserConfig{
		CountryCode:     "US",
		LanguageCode:    "en",
		BudgetLevel:     BudgetMedium,
		HouseholdSize:   1,
		StorePreference: "any",
		StoreWebsites:   []string{"walmart.com", "target.com", "amazon.com"},
	}
}
