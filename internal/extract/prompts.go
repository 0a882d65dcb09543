package extract

// Prompt templates for the extraction pipeline. Each phase uses a short
// system prompt plus a formatted user prompt, and every structured phase
// demands bare JSON so the sanitizer has little to strip.

const parseSystemPrompt = `You are a procurement analyst. Extract the following information from vendor proposal emails and output as JSON:
- total_price: number or null
- line_item_prices: array of objects with {item: string, price: number} or empty array
- warranty_terms: string or null
- delivery_time: string or null
- additional_notes: string or null

If information is not found, use null. Output ONLY valid JSON, no explanations.`

const parseUserPrompt = `Vendor Email:
"""
%s
"""

JSON Output:`

const summarySystemPrompt = `You are a procurement analyst. Summarize vendor proposals in 2-3 sentences, highlighting the key terms (price, delivery, warranty).`

const summaryUserPrompt = `Extracted Data: %s

Original Email (for context):
%s

Summary:`

const compareSystemPrompt = `Act as a procurement manager. Compare vendor proposals against the original RFP requirements.

For each proposal, evaluate:
1. Price competitiveness (vs budget and other proposals)
2. Completeness of response
3. Delivery timeline
4. Warranty/terms offered

Output a JSON object with:
{
  "scores": [
    {
      "proposalId": "uuid",
      "vendorName": "string",
      "score": number (0-100),
      "strengths": ["string"],
      "weaknesses": ["string"]
    }
  ],
  "recommendedProposalId": "uuid of best proposal",
  "recommendedVendorName": "name of best vendor",
  "summary": "2-3 sentence explanation of why this vendor is recommended",
  "comparisonNotes": "Brief overview of how proposals compare"
}

Output ONLY valid JSON, no markdown code blocks, no explanations.`

const compareUserPrompt = `ORIGINAL RFP:
Title: %s
Budget: %s
Requirements: %s

VENDOR PROPOSALS:
%s`

const generateSystemPrompt = `You are a procurement expert. Convert user queries into a JSON object with fields: title, lineItems (array of objects with item, quantity, specs), budget (number or null if not specified), deliveryDate (ISO date string or null), paymentTerms (string or null). Output ONLY valid JSON, no markdown code blocks, no explanations.`

const generateUserPrompt = `User Query: "%s"

JSON Output:`
