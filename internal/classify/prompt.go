package classify

import "strings"

// PostTextPlaceholder marks where the post body is substituted into the
// prompt template.
const PostTextPlaceholder = "{post_text}"

// DefaultPrompt is the policy prompt sent for every message. Deployments can
// replace it with a template file; the only contract is the {post_text}
// placeholder and the JSON output shape.
const DefaultPrompt = `You are the moderator of a team chat community.
Analyze whether the post below may violate our community guidelines, and
whether it is a positive contribution such as thanks, praise or
encouragement toward others.

# Community guidelines
- Always treat others with respect. Slander, harassment and discriminatory
  remarks are forbidden.
- Posting personal information (full name, employer, address, phone number,
  email address and so on) is forbidden.
- Posts whose purpose is sales, advertising or solicitation are forbidden.

# Post text
"""
{post_text}
"""

# Output format
Respond with the following JSON object only, no other text.
- is_violation: true when the post likely violates the guidelines, otherwise false.
- violation_reason: when is_violation is true, a short explanation of why.
- is_positive: true when the post contains thanks, praise or encouragement toward others, otherwise false.
- is_helpful_answer: true when the post is a helpful answer to a question, otherwise false.

{
  "is_violation": boolean,
  "violation_reason": "why the post violates the guidelines",
  "is_positive": boolean,
  "is_helpful_answer": boolean
}`

// BuildPrompt substitutes the post text into the template.
func BuildPrompt(template, postText string) string {
	return strings.ReplaceAll(template, PostTextPlaceholder, postText)
}
