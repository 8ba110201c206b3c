package enrichment

// Prompt templates for the pipeline stages. All prompts instruct the model
// to answer with the payload only, no preamble, so responses can be used
// verbatim after trimming.
const (
	canonicalTitlePrompt = `Summarize the core news event below as a single short English sentence.
Use only the essential facts (who, what, where). Ignore style, opinion and source branding.
Two articles about the same event must produce the same sentence.
Respond with the sentence only.

Title: %s
Excerpt: %s`

	filterRelevancePrompt = `You are the editor of a general-interest news page. Decide whether the
article below is worth posting. Reject advertorials, horoscopes, celebrity
gossip, listicles and content with no news value.

Respond with exactly one line:
APPROVED
or
REJECTED - <short reason>

Title: %s
Excerpt: %s`

	translatePrompt = `Translate the following text into the language with ISO code %q.
Keep the meaning and tone. Respond with the translation only.

%s`

	refineTitlePrompt = `Rewrite the headline below so it is short, punchy and engaging for a
social media post, in the language with ISO code %q. Maximum 12 words.
Do not use quotation marks. Respond with the headline only.

%s`

	rewriteCaptionPrompt = `Rewrite the news article below as a social media caption in the language
with ISO code %q. Write a factual lead paragraph, then the separator |||,
then one short closing hook that invites engagement. No hashtags, no emojis,
no list markers. Respond with the caption only.

Title: %s
Article: %s`

	categorizePrompt = `Classify the news post below into exactly one broad news category, for
example Politics, Economy, Technology, Sports, Health, Science, World or
Entertainment. Respond with the category name only.

Headline: %s
Caption: %s`

	hashtagsPrompt = `Suggest exactly 3 specific hashtags for a social media post about the
headline below, category %s. No generic tags like #news or #today.
Respond with the hashtags on one line, space separated, each starting with #.

%s`
)
