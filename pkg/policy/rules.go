package policy

import "strings"

// Rules is a declarative resolver: the first line may have its own limit and
// languages may override the base limit. Language keys are matched
// case-insensitively.
type Rules struct {
	Base      int
	FirstLine int
	Languages map[string]int
}

// Resolver turns the rules into a ResolverFunc. Lines no rule applies to get
// r.Base, or DefaultLimit when Base is not positive.
func (r Rules) Resolver() ResolverFunc {
	langs := make(map[string]int, len(r.Languages))
	for name, limit := range r.Languages {
		langs[strings.ToLower(name)] = limit
	}
	return func(ctx LineContext) (int, error) {
		if ctx.Line == 1 && r.FirstLine > 0 {
			return r.FirstLine, nil
		}
		if limit, ok := langs[strings.ToLower(ctx.Language)]; ok && limit > 0 {
			return limit, nil
		}
		if r.Base > 0 {
			return r.Base, nil
		}
		return DefaultLimit, nil
	}
}

// Empty reports whether the rules would never differ from the base limit.
func (r Rules) Empty() bool {
	return r.FirstLine <= 0 && len(r.Languages) == 0
}
