package service

import (
	"fmt"
	"strings"
)

// FallbackOutline builds a minimal outline from the raw request when the
// provider outline call fails.
func FallbackOutline(topic, thesis string) string {
	return fmt.Sprintf("# %s\n\n## Introduction\n%s\n\n## Main points\n- %s\n\n## Conclusion\n",
		strings.TrimSpace(topic), strings.TrimSpace(thesis), strings.TrimSpace(thesis))
}

// FallbackArticle builds a minimal article from the raw request when the
// provider article call fails.
func FallbackArticle(topic, thesis string) string {
	topic = strings.TrimSpace(topic)
	thesis = strings.TrimSpace(thesis)
	return fmt.Sprintf("# %s\n\n## Introduction\n\n%s\n\n## Main part\n\nThis article covers %s.\n\n## Conclusion\n\n%s\n",
		topic, thesis, topic, thesis)
}
