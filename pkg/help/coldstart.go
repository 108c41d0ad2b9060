package help

const ColdstartYAML = `# llm-web-digest Quick Start

pipeline:
  - "extract: article, then main-content selectors, then body (or --extractor readability)"
  - "analyze: chat-completion model returns {title, summary, keywords}"
  - "persist: one row in the local records table"
  - "sync: optional, only when all three sync settings are set; never fails a capture"

first_run: |
  lwd settings set analysis_api_key sk-...
  lwd capture --url "https://example.com/article"

knowledge_base: |
  lwd settings save \
    --analysis-api-key sk-... \
    --sync-api-url https://api.dify.ai/v1 \
    --sync-api-key dataset-... \
    --sync-dataset-id <dataset id>

commands:
  capture_one: |
    lwd capture --url "https://example.com/post"

  capture_many: |
    lwd capture --url "url1,url2,url3" --workers 3

  rendered_page: |
    lwd capture --url "https://spa.example.com" --source browser

  offline_snapshot: |
    lwd capture --url "https://example.com/post" --source file --html-file saved.html

  list_records: |
    lwd records list
    lwd records list --search golang
    lwd records list --date 2024/03/05 --format yaml

  annotate: |
    lwd records notes 12 "read again before the review"

  keyword_tally: |
    lwd records keywords --top 20

  export_csv: |
    lwd records export --dir ~/Downloads
    lwd records export --layout titled

settings_keys:
  analysis_api_key: "required; env LWD_ANALYSIS_API_KEY"
  sync_api_url: "optional; env LWD_SYNC_API_URL"
  sync_api_key: "optional; env LWD_SYNC_API_KEY"
  sync_dataset_id: "optional; env LWD_SYNC_DATASET_ID"

sync_status:
  synced: "document created in the knowledge base"
  not-configured: "sync settings incomplete, step skipped"
  failed: "record saved, knowledge base call failed (see logs)"

export_layouts:
  digest: "日期,要点,关键词,原始网址,备注"
  titled: "标题,URL,日期,摘要,关键词,备注"

error_behavior:
  - "Missing analysis key: fails before any network or database access"
  - "No extractable text, API errors, unparseable replies: capture fails, nothing stored"
  - "Exit codes: 0=success, 1=partial failure, 2=complete failure"
`
