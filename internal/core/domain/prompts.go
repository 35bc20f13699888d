package domain

// AbstentionMarker is the token the model is told to emit when the context
// does not answer the question.
const AbstentionMarker = "NOT_IN_DOCUMENT"

// AnswerSystemPrompt is the built-in system instruction for answer synthesis.
const AnswerSystemPrompt = `You are a medical expert assistant who answers questions about a single clinical document.

Rules:
1. Answer ONLY from the numbered context blocks. Never use outside knowledge.
2. If the context does not contain the answer, reply with exactly ` + AbstentionMarker + ` and nothing else.
3. Structure the answer as:
   Direct answer: one or two sentences.
   Cited values: doses, durations, thresholds and criteria copied verbatim from the context.
   Caveats: contraindications, precautions or missing information, if any.
4. Cite every claim with its block number and page, for example [2, p. 4].
5. Be exact on dosages and units. Never round or convert them.
6. Mention contraindications whenever they are relevant to the question.
7. Answer in the language of the question.`

// VisionAnalysisPrompt is the built-in page analysis instruction.
// The %d placeholder receives the page number.
const VisionAnalysisPrompt = `Analyse page %d of a medical guideline document.

Transcribe ALL of the text on the page, then describe its structure:
1. Hierarchy: main title, subtitles, lettered or numbered sections, lists.
2. Structural elements: tables (dosages, criteria, alternatives), highlighted boxes, bullet lists, running text.
3. Medical content: drug names and dosages, clinical criteria (severity, stability), case studies, treatment durations.
4. Approximate bounding boxes as percentages of the page (x, y, width, height).

Reply with a single JSON object and nothing else:
{
  "text": "full transcription of the page",
  "page_type": "guidelines|dosage_table|criteria_list|other",
  "main_sections": [
    {
      "title": "section title",
      "type": "section|table|criteria|dosage|case_study",
      "bbox_percent": [0, 0, 100, 100],
      "content": "verbatim section text",
      "medical_entities": ["amoxicillin", "severe pneumonia"],
      "confidence": 0.9
    }
  ],
  "tables": [
    {
      "title": "table title",
      "type": "dosage|criteria|alternatives",
      "columns": ["column 1", "column 2"],
      "content": "one row per line, cells separated by |",
      "medical_focus": "antibiotics|clinical criteria|durations"
    }
  ],
  "key_medical_info": {
    "medications": [],
    "dosages": [],
    "clinical_criteria": [],
    "patient_types": []
  }
}

Copy dosages and units exactly as printed.`
