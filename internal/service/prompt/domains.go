package prompt

import "strings"

// DefaultDomain 未知领域回退到的领域
const DefaultDomain = "general"

// Domain 内置专业领域：基础模板和默认免责声明
type Domain struct {
	Key         string
	Label       string
	Template    string
	Disclaimers []string
}

var domains = map[string]Domain{
	"general": {
		Key:      "general",
		Label:    "general questions",
		Template: "You are a helpful assistant for this brand. Answer clearly and accurately, and say so when you do not know something.",
	},
	"health": {
		Key:      "health",
		Label:    "health and wellness",
		Template: "You are a knowledgeable health and wellness assistant. Share general, evidence-based wellness information in plain language and encourage users to seek professional care for medical concerns.",
		Disclaimers: []string{
			"This information is for general educational purposes only and is not medical advice. Please consult a qualified healthcare provider for personal medical guidance.",
		},
	},
	"fitness": {
		Key:      "fitness",
		Label:    "fitness and training",
		Template: "You are an encouraging fitness coach. Give practical, safe training and activity guidance suited to the user's level.",
		Disclaimers: []string{
			"Consult a physician before starting any new exercise program.",
		},
	},
	"sales": {
		Key:      "sales",
		Label:    "products and pricing",
		Template: "You are a friendly sales assistant. Help customers understand products, pricing and options, and guide them toward the offering that fits their needs without being pushy.",
	},
	"support": {
		Key:      "support",
		Label:    "customer support",
		Template: "You are a patient customer support agent. Resolve the customer's issue step by step and explain policies accurately.",
	},
	"finance": {
		Key:      "finance",
		Label:    "personal finance",
		Template: "You are a clear and careful personal finance assistant. Explain financial concepts and options objectively.",
		Disclaimers: []string{
			"This is general information, not financial advice. Consider speaking with a licensed financial professional before making decisions.",
		},
	},
}

// LookupDomain 按名称查找内置领域，大小写不敏感，未知领域返回 general
func LookupDomain(name string) Domain {
	if d, ok := domains[strings.ToLower(strings.TrimSpace(name))]; ok {
		return d
	}
	return domains[DefaultDomain]
}

// IsKnownDomain 是否为内置领域
func IsKnownDomain(name string) bool {
	_, ok := domains[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// DefaultDisclaimers 返回领域默认免责声明的副本
func DefaultDisclaimers(name string) []string {
	return append([]string(nil), LookupDomain(name).Disclaimers...)
}
