package admin

const tmplLayout = `
{{define "layout"}}<!DOCTYPE html>
<html lang="en-US">
<head>
<meta charset="UTF-8">
<title>{{block "title" .}}Add Plugins{{end}} &lsaquo; WordPress</title>
<link rel="stylesheet" href="css/plugin-install.css">
</head>
<body class="wp-admin plugin-install-php">
<div class="wrap">
{{template "content" .}}
</div>
</body>
</html>
{{end}}
`

const tmplIframeLayout = `
{{define "layout"}}<!DOCTYPE html>
<html lang="en-US">
<head>
<meta charset="UTF-8">
<title>Plugin Install &lsaquo; WordPress</title>
<link rel="stylesheet" href="css/plugin-install.css">
{{template "head" .}}
</head>
<body id="plugin-information" class="wp-admin iframe">
{{template "content" .}}
</body>
</html>
{{end}}
`

const tmplStars = `
{{define "stars"}}<div class="star-rating" title="{{.Title}}">
<span class="screen-reader-text">{{.Title}}</span>
{{range .Icons}}<div class="star {{.}}"></div>{{end}}
</div>{{end}}
`

const tmplInstall = `
{{define "content"}}
<h2>Add Plugins <a href="{{.UploadURL}}" class="upload add-new-h2">Upload Plugin</a></h2>

<div class="wp-filter">
<ul class="filter-links">
{{range .Tabs}}<li class="plugin-install-{{.Name}}"><a href="{{.URL}}"{{if .Current}} class="current"{{end}}>{{.Label}}</a></li>
{{end}}</ul>
</div>

{{if .Dashboard}}
<p>Plugins extend and expand the functionality of WordPress. You may automatically install plugins from the <a href="https://wordpress.org/plugins/">WordPress Plugin Directory</a> or upload a plugin in .zip format via <a href="{{.UploadURL}}">this page</a>.</p>
{{end}}

{{with .Search}}
<form class="search-form search-plugins" method="get" action="">
<input type="hidden" name="tab" value="search" />
<select name="type" id="typeselector">
<option value="term"{{if eq .Type "term"}} selected="selected"{{end}}>Keyword</option>
<option value="author"{{if eq .Type "author"}} selected="selected"{{end}}>Author</option>
<option value="tag"{{if eq .Type "tag"}} selected="selected"{{end}}>Tag</option>
</select>
<label><span class="screen-reader-text">Search Plugins</span>
<input type="search" name="s" value="{{.Term}}" />
</label>
<input type="submit" id="search-submit" class="button screen-reader-text" value="Search Plugins" />
</form>
{{end}}

{{with .Upload}}
<div class="upload-plugin">
<p class="install-help">If you have a plugin in a .zip format, you may install it by uploading it here.</p>
<form method="post" enctype="multipart/form-data" class="wp-upload-form" action="{{.Action}}">
<input type="hidden" id="_wpnonce" name="_wpnonce" value="{{.Nonce}}" />
<label class="screen-reader-text" for="pluginzip">Plugin zip file</label>
<input type="file" id="pluginzip" name="pluginzip" />
<input type="submit" name="install-plugin-submit" id="install-plugin-submit" class="button" value="Install Now" />
</form>
</div>
{{end}}

{{with .Favorites}}
<p class="install-help">If you have marked plugins as favorites on WordPress.org, you can browse them here.</p>
<form method="get" action="">
<input type="hidden" name="tab" value="favorites" />
<p>
<label for="user">Your WordPress.org username:</label>
<input type="search" id="user" name="user" value="{{.User}}" />
<input type="submit" class="button" value="Get Favorites" />
</p>
</form>
{{end}}

{{if .Recommended}}<p>These suggestions are based on the plugins you and other users have installed.</p>{{end}}

{{with .Table}}{{template "table" .}}{{end}}

{{if .Dashboard}}
<h3>Popular tags</h3>
<p>You may also browse based on the most popular tags in the Plugin Directory:</p>
<p class="popular-tags">
{{- if .TagsError}}{{.TagsError}}{{else}}{{range .TagCloud}}
<a href="{{.URL}}" class="tag-link-{{.ID}}" title="{{.Title}}" style="font-size: {{.FontSize}};">{{.Name}}</a>{{end}}{{end}}
</p><br class="clear" />
{{end}}
{{end}}
`

const tmplTable = `
{{define "table"}}
<form id="plugin-filter" action="" method="post">
<div class="tablenav top">
<div class="tablenav-pages"><span class="displaying-num">{{.Items}}</span>
{{if .PrevURL}}<a class="prev-page" href="{{.PrevURL}}">&lsaquo;</a>{{end}}
{{if gt .Pages 1}}<span class="paging-input">{{.Page}} of <span class="total-pages">{{.Pages}}</span></span>{{end}}
{{if .NextURL}}<a class="next-page" href="{{.NextURL}}">&rsaquo;</a>{{end}}
</div>
</div>
<div id="the-list">
{{range .Rows}}
<div class="plugin-card plugin-card-{{.Slug}}">
<div class="plugin-card-top">
<div class="name column-name"><h4><a href="{{.DetailsURL}}" class="thickbox">{{.Name}}</a></h4></div>
<div class="action-links"><ul class="plugin-action-buttons">
{{with .Action}}<li>{{if .Disabled}}<span class="button button-disabled" title="{{.Title}}">{{.Label}}</span>{{else}}<a class="install-now button" href="{{.URL}}" aria-label="{{.Title}}">{{.Label}}</a>{{end}}</li>{{end}}
<li><a href="{{.DetailsURL}}" class="thickbox">More Details</a></li>
</ul></div>
<div class="desc column-description"><p>{{.Description}}</p>
<p class="authors"><cite>By {{.Author}}</cite></p></div>
</div>
<div class="plugin-card-bottom">
<div class="vers column-rating">{{template "stars" .Stars}}<span class="num-ratings">({{.NumRatings}})</span></div>
<div class="column-version">Version {{.Version}}</div>
</div>
</div>
{{else}}
<p class="no-items">No plugins match your request.</p>
{{end}}
</div>
</form>
{{end}}
`

const tmplInformation = `
{{define "head"}}{{if .WithBanner}}
<style type="text/css">
#plugin-information-title.with-banner { background-image: url({{.BannerLow}}); }
@media only screen and (-webkit-min-device-pixel-ratio: 1.5) {
	#plugin-information-title.with-banner { background-image: url({{.BannerHigh}}); }
}
</style>{{end}}{{end}}

{{define "content"}}
<div id="plugin-information-scrollable">
<div id="{{.Tab}}-title"{{if .WithBanner}} class="with-banner"{{end}}><div class="vignette"></div><h2>{{.Name}}</h2></div>
<div id="{{.Tab}}-tabs"{{if .WithBanner}} class="with-banner"{{end}}>
{{range .Sections}}	<a name="{{.Name}}" href="{{.URL}}"{{if .Current}} class="current"{{end}}>{{.Title}}</a>
{{end}}</div>
<div id="{{.Tab}}-content"{{if .WithBanner}} class="with-banner"{{end}}>
<div class="fyi">
<ul>
{{with .FYI}}
{{if .Version}}<li><strong>Version:</strong> {{.Version}}</li>{{end}}
{{if .Author}}<li><strong>Author:</strong> {{.Author}}</li>{{end}}
{{if .LastUpdated}}<li><strong>Last Updated:</strong> <span title="{{.UpdatedAt}}">{{.LastUpdated}}</span></li>{{end}}
{{if .Requires}}<li><strong>Requires WordPress Version:</strong> {{.Requires}} or higher</li>{{end}}
{{if .Tested}}<li><strong>Compatible up to:</strong> {{.Tested}}</li>{{end}}
{{if .Downloaded}}<li><strong>Downloaded:</strong> {{.Downloaded}}</li>{{end}}
{{if .PluginPage}}<li><a target="_blank" href="{{.PluginPage}}">WordPress.org Plugin Page &#187;</a></li>{{end}}
{{if .Homepage}}<li><a target="_blank" href="{{.Homepage}}">Plugin Homepage &#187;</a></li>{{end}}
{{if .DonateLink}}<li><a target="_blank" href="{{.DonateLink}}">Donate to this plugin &#187;</a></li>{{end}}
{{end}}
</ul>
{{with .Rating}}<h3>Average Rating</h3>
{{template "stars" .}}
<small>{{$.BasedOn}}</small>{{end}}
{{range .Counters}}
<div class="counter-container">
<span class="counter-label"><a href="{{.URL}}" target="_blank" title="{{.Title}}">{{.Label}}</a></span>
<span class="counter-back"><span class="counter-bar" style="width: {{.Width}}px;"></span></span>
<span class="counter-count">{{.Count}}</span>
</div>
{{end}}
{{if .Contributors}}<h3>Contributors</h3>
<ul class="contributors">
{{range .Contributors}}<li>{{if .Profile}}<a href="{{.Profile}}" target="_blank"><img src="{{.Avatar}}" width="18" height="18" />{{.Name}}</a>{{else}}<img src="{{.Avatar}}" width="18" height="18" />{{.Name}}{{end}}</li>
{{end}}</ul>
{{if .DonateLink}}<a target="_blank" href="{{.DonateLink}}">Donate to this plugin &#187;</a>{{end}}
{{end}}
</div>
<div id="section-holder" class="wrap">
{{if .Warning}}<div class="notice notice-warning"><p>{{.Warning}}</p></div>{{end}}
{{range .Sections}}	<div id="section-{{.Name}}" class="section" style="display: {{if .Current}}block{{else}}none{{end}};">
{{.Content}}
	</div>
{{end}}</div>
</div>
</div>
<div id="{{.Tab}}-footer">
{{with .Footer}}{{if .Disabled}}<a class="button button-primary right disabled">{{.Label}}</a>{{else}}<a class="button button-primary right" href="{{.URL}}" target="_parent">{{.Label}}</a>{{end}}{{end}}
</div>
{{end}}
`

const tmplError = `
{{define "title"}}Error{{end}}
{{define "content"}}
<div class="wp-die-message">
<p>{{.Message}}{{if .SupportURL}} Please try the <a href="{{.SupportURL}}">support forums</a>.{{end}}</p>
{{if .Retry}}<p class="hide-if-no-js"><a href="#" onclick="document.location.reload(); return false;">Try again</a></p>{{end}}
</div>
{{end}}
`

const tmplMessage = `
{{define "title"}}{{.Title}}{{end}}
{{define "content"}}
<h2>{{.Title}}</h2>
<p>{{.Message}}</p>
{{if .Back}}<p><a href="{{.Back}}">Return to Plugin Installer</a></p>{{end}}
{{end}}
`

const tmplLogin = `
{{define "title"}}Log In{{end}}
{{define "content"}}
<div id="login">
<h1>Log In</h1>
{{if .Error}}<div id="login_error">{{.Error}}</div>{{end}}
<form name="loginform" id="loginform" action="{{.Action}}" method="post">
<p><label for="user_login">Username<br /><input type="text" name="log" id="user_login" class="input" value="{{.User}}" size="20" /></label></p>
<p><label for="user_pass">Password<br /><input type="password" name="pwd" id="user_pass" class="input" value="" size="20" /></label></p>
<input type="hidden" name="redirect_to" value="{{.RedirectTo}}" />
<p class="submit"><input type="submit" name="wp-submit" id="wp-submit" class="button button-primary button-large" value="Log In" /></p>
</form>
</div>
{{end}}
`
