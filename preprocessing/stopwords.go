package preprocessing

import "strings"

// englishStopWords is the usual English stop-word list used for bag-of-words
// text features.
var englishStopWords = func() map[string]struct{} {
	words := strings.Fields(`
		a about above after again against all am an and any are as at be
		because been before being below between both but by cannot could did
		do does doing down during each few for from further had has have
		having he her here hers herself him himself his how i if in into is
		it its itself just me more most my myself no nor not now of off on
		once only or other our ours ourselves out over own same she should
		so some such than that the their theirs them themselves then there
		these they this those through to too under until up very was we were
		what when where which while who whom why will with you your yours
		yourself yourselves
	`)
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}()
