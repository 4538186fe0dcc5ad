package consts

const WelcomeMessage = "Hi, I'm FinanceGenie! Ask me about stocks, financial markets, or investment strategies. I can provide real-time data and insights to help you make informed decisions."

const SystemPersona = "You are FinanceGenie, a financial assistant specializing in stock market analysis, investment advice, and financial insights. Provide concise, accurate information about stocks, market trends, and financial concepts. Use data to support your answers when possible."

const ReplyApology = "I'm sorry, I couldn't process your request at the moment. Please try again later."

// User-visible notifications.
const (
	NoticeRateLimited    = "API rate limit reached. Please try again shortly."
	NoticeQuoteFailed    = "Failed to fetch stock data"
	NoticeHistoryFailed  = "Failed to fetch historical stock data"
	NoticeQuoteNotFound  = "No data found for symbol: %s"
	NoticeHistNotFound   = "No historical data found for symbol: %s"
	NoticeReplyFailed    = "Failed to get a response from the AI"
	NoticeHistoryCleared = "Chat history cleared"
)
