// Package eval runs scripted shopping conversations against the learning
// subsystem and scores the resulting profile, insights, and rendered context
// against per-scenario expectations. Scenarios exercise only the learner and
// an in-memory store; no LLM or network is involved, so a run is fully
// deterministic.
package eval

import "github.com/cartwise/cartwise/internal/memory"

// Turn is one scripted user query and the assistant response fed back into
// the learning step. An empty Response means the turn had no usable outcome.
type Turn struct {
	Query    string
	Response string
}

// Expectation is checked against the state after all turns of a scenario
// have been learned. Slice fields assert containment, not exact equality;
// MinConfidence keys use the stored "<domain>_<value>" format.
type Expectation struct {
	Dietary          []string
	Quality          []string
	Stores           []string
	TopStore         string
	BudgetCategories []string
	MinConfidence    map[string]float64
	InsightKinds     []memory.InsightKind
	LastQueryType    string
	ContextContains  []string
}

// Scenario is a named conversation with its expected learning outcome.
type Scenario struct {
	Name   string
	Turns  []Turn
	Expect Expectation
}

// Scenarios returns the built-in evaluation dataset.
func Scenarios() []Scenario {
	return []Scenario{
		{
			Name: "dietary_restrictions",
			Turns: []Turn{
				{Query: "I need gluten-free and dairy free breakfast options"},
			},
			Expect: Expectation{
				Dietary: []string{"gluten-free", "dairy-free"},
				MinConfidence: map[string]float64{
					"dietary_gluten-free": 0.80,
					"dietary_dairy-free":  0.80,
				},
				InsightKinds:    []memory.InsightKind{memory.KindRecommendation},
				LastQueryType:   "general_search",
				ContextContains: []string{"DIETARY: dairy-free, gluten-free"},
			},
		},
		{
			Name: "quality_and_budget",
			Turns: []Turn{
				{
					Query:    "Find affordable organic vegetables for a family of four",
					Response: "Found several organic options within budget",
				},
			},
			Expect: Expectation{
				Quality:          []string{"organic"},
				BudgetCategories: []string{"general"},
				MinConfidence: map[string]float64{
					"quality_organic":         0.75,
					"budget_budget-conscious": 0.80,
				},
				LastQueryType: "organic_search",
			},
		},
		{
			Name: "positive_feedback_boost",
			Turns: []Turn{
				{Query: "vegan milk alternatives"},
				{
					Query:    "more vegan options please",
					Response: "Here are some vegan options I found",
				},
			},
			Expect: Expectation{
				Dietary: []string{"vegan"},
				MinConfidence: map[string]float64{
					"dietary_vegan": 0.95,
				},
				ContextContains: []string{"DIETARY: vegan"},
			},
		},
		{
			Name: "store_loyalty",
			Turns: []Turn{
				{Query: "any deals at whole foods this week"},
				{Query: "whole foods weekly specials"},
				{Query: "find milk prices at target"},
			},
			Expect: Expectation{
				Stores:   []string{"whole-foods", "target"},
				TopStore: "whole-foods",
				MinConfidence: map[string]float64{
					"store_whole-foods": 0.80,
					"store_target":      0.70,
				},
				LastQueryType:   "dairy_search",
				ContextContains: []string{"STORES: whole-foods, target"},
			},
		},
		{
			Name: "budget_generalization",
			Turns: []Turn{
				{Query: "cheap bread please"},
				{Query: "affordable milk brands"},
			},
			Expect: Expectation{
				BudgetCategories: []string{"carbohydrates", "dairy", "general"},
				MinConfidence: map[string]float64{
					"budget_budget-conscious": 0.90,
				},
				LastQueryType:   "dairy_search",
				ContextContains: []string{"BUDGET: carbohydrates:budget-conscious, dairy:budget-conscious"},
			},
		},
		{
			Name: "cross_category_pattern",
			Turns: []Turn{
				{Query: "organic bread"},
				{Query: "organic milk"},
				{Query: "organic vegetables"},
			},
			Expect: Expectation{
				Quality: []string{"organic"},
				MinConfidence: map[string]float64{
					"quality_organic": 0.90,
				},
				InsightKinds:    []memory.InsightKind{memory.KindPattern},
				LastQueryType:   "organic_search",
				ContextContains: []string{"QUALITY: organic"},
			},
		},
	}
}
