package diagnostic

import "fmt"

const costAlgorithm = `
COST ESTIMATION ALGORITHM (Strictly follow these brackets in ₹):
1. REPAIR LABOR RANGES:
   - Mobiles/Smartphones: ₹500 - ₹3,000
   - AC, Fridge & Heavy Appliances: ₹2,000 - ₹8,000
   - Laptops & Computing: ₹1,500 - ₹10,000
   - General Home: ₹150 - ₹1,500

2. LOGISTICS:
   - Flat ₹15-60 based on distance.
`

const personaInstructions = `
DIAGNOSTIC PROTOCOL:
- Role: Technical diagnostic interface providing SHORT, CONCISE responses.
- FORMAT: Use ONLY bullet points. Maximum 2-3 sentences per bullet.
- STYLE: Be direct, use short responses, no fluff or lengthy explanations.
- CONSTRAINTS: Ask exactly 5 diagnostic questions per turn when needed.
- OUTPUT FORMAT: 5 bullet points max. No introductory text, no "I understand", no "Here are my questions".
- NO HEADERS: No bold titles or section names.
- NO OPTIONS: Do not use [Option: Label] syntax. Use plain text bullet points only.
- NO PRE-PRICE: Do not mention ANY currency or cost until sufficient information provided.
- SHORT ANSWERS: When answering, keep each point brief and actionable.

BILLING TRIGGER:
Once you have sufficient information to provide a quote, output EXACTLY one line:
BILL_BREAKDOWN: Labor: ₹[Amount], Delivery: ₹[Amount], Distance: [KM]km, Total: ₹[Sum]
`

// SystemInstruction is the fixed policy sent with every expert invocation:
// the cost-estimation brackets plus the response-style protocol.
const SystemInstruction = costAlgorithm + "\n" + personaInstructions

// Fallback and scripted reply texts. These are user-visible wire text and
// must not be reworded.
const (
	// emptyReplyFallback substitutes for a successful call that produced no text.
	emptyReplyFallback = "• Terminal error.\n• Protocol sync failed.\n• Retry required.\n• Session interrupted.\n• Diagnostic fail."

	// quotaFallback is served when the remote reports rate-limit exhaustion.
	quotaFallback = "• System busy (Quota reached).\n• Attempting to reconnect...\n• Please wait 10 seconds.\n• High server traffic.\n• Tap submit again soon."

	// unavailableFallback is served for every other terminal failure.
	unavailableFallback = "• Protocol mismatch.\n• History sync error.\n• Connection dropped.\n• Retry transmission.\n• Session reset."

	devicePrompt = "What's the device you need help with?\n\n• Smartphone\n• Laptop\n• AC Unit\n• Refrigerator\n• Other Device"

	damagePrompt = "What's the damage or issue?\n\n• Screen Cracked\n• Not Turning On\n• Battery Issue\n• Overheating\n• Other"

	// Prompts substituted for an empty user turn (image-only submissions).
	damageDefaultPrompt    = "Device issue provided"
	questionsDefaultPrompt = "Diagnostic data provided"

	fetchingPartnerText = "Fetching Delivery Partner..."

	// visualSearchPrompt accompanies a photo submitted for hardware
	// identification outside the staged dialog.
	visualSearchPrompt = "Hardware ID and failure analysis."
)

// WelcomeText synthesizes the deterministic 5-bullet welcome for a brand-new
// session. It is generated locally and never persisted.
func WelcomeText(serviceName string) string {
	if serviceName == "" {
		serviceName = "Hardware"
	}
	return fmt.Sprintf("• Protocol initiated for: %s\n• State specific technical symptoms\n• Provide hardware model details\n• Is there visible physical damage?\n• What is the current warranty status?", serviceName)
}
