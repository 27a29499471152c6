package ai

const generateLoopSystemPrompt = `You design reusable checklists called loops.
Reply with a single JSON object:
{"name": string, "description": string, "color": "#RRGGBB",
 "reset_rule": "manual" | "daily" | "weekly",
 "tasks": [{"description": string, "type": "recurring" | "one-time"}]}
Recurring tasks repeat every time the loop is reset. One-time tasks are done once.
Keep it to at most 10 short tasks.`

const suggestTasksSystemPrompt = `You help people improve checklists called loops.
You receive the loop as JSON with its current tasks. Suggest up to 5 tasks that are missing.
Reply with a single JSON object:
{"tasks": [{"description": string, "type": "recurring" | "one-time"}]}`

const optimizeSystemPrompt = `You help people improve checklists called loops.
You receive the loop as JSON with its current tasks. Review the order, wording and reset rule.
Reply with a single JSON object:
{"summary": string, "suggestions": [string]}`
