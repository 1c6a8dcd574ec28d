package automation

import "strings"

// AutoSchema derives an extraction schema from command text and the target
// URL when the caller supplied none. The heuristics mirror the engine's own
// fallback so both sides agree on the output shape.
func AutoSchema(commands []string, targetURL string) map[string]interface{} {
	text := strings.ToLower(strings.Join(commands, "\n"))
	target := strings.ToLower(targetURL)

	if containsAny(text, "product", "price", "buy", "shop", "cart") {
		if strings.Contains(target, "amazon") {
			return map[string]interface{}{
				"products": []interface{}{
					map[string]interface{}{
						"title":         "string",
						"price":         "string",
						"rating":        "number",
						"reviews_count": "string",
						"availability":  "string",
						"image_url":     "string",
					},
				},
			}
		}
		return map[string]interface{}{
			"products": []interface{}{
				map[string]interface{}{
					"name":        "string",
					"price":       "string",
					"description": "string",
				},
			},
		}
	}

	if containsAny(text, "search", "results", "find", "list") {
		return map[string]interface{}{
			"results": []interface{}{
				map[string]interface{}{
					"title":       "string",
					"url":         "string",
					"description": "string",
				},
			},
		}
	}

	if containsAny(text, "news", "article", "headline", "story") {
		return map[string]interface{}{
			"articles": []interface{}{
				map[string]interface{}{
					"headline": "string",
					"summary":  "string",
					"author":   "string",
					"date":     "string",
					"url":      "string",
				},
			},
		}
	}

	if containsAny(text, "form", "input", "field", "submit") {
		return map[string]interface{}{
			"form_data": map[string]interface{}{
				"fields": []interface{}{
					map[string]interface{}{
						"name":     "string",
						"type":     "string",
						"value":    "string",
						"required": "boolean",
					},
				},
			},
		}
	}

	if containsAny(text, "post", "tweet", "comment", "like", "share") {
		return map[string]interface{}{
			"posts": []interface{}{
				map[string]interface{}{
					"content":   "string",
					"author":    "string",
					"timestamp": "string",
					"likes":     "number",
					"comments":  "number",
				},
			},
		}
	}

	return map[string]interface{}{
		"data": []interface{}{
			map[string]interface{}{
				"text":  "string",
				"value": "string",
			},
		},
	}
}

func containsAny(text string, keywords ...string) bool {
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}
